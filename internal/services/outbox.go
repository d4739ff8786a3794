package services

import (
	"context"
	"errors"
	"time"

	"configurator/internal/models"
	"configurator/internal/repositories"

	"go.uber.org/zap"
)

// OutboxSyncer moves orders parked in the local fallback list to the remote
// store once it is reachable again.
type OutboxSyncer struct {
	remote     repositories.OrderRepository
	local      *repositories.LocalOrderStore
	logger     *zap.Logger
	interval   time.Duration
	maxBackoff time.Duration
}

// NewOutboxSyncer creates a syncer that runs every interval and backs off up to maxBackoff.
func NewOutboxSyncer(remote repositories.OrderRepository, local *repositories.LocalOrderStore, interval, maxBackoff time.Duration, logger *zap.Logger) *OutboxSyncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBackoff < interval {
		maxBackoff = interval
	}
	return &OutboxSyncer{
		remote:     remote,
		local:      local,
		logger:     logger,
		interval:   interval,
		maxBackoff: maxBackoff,
	}
}

// Drain pushes local orders to the remote store, oldest first, removing each
// one after it lands. It stops at the first failure and returns how many
// orders were moved.
func (s *OutboxSyncer) Drain(ctx context.Context) (int, error) {
	pending, err := s.local.List(models.AllOrders())
	if err != nil {
		return 0, err
	}

	moved := 0
	for i := len(pending) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return moved, err
		}
		o := pending[i]
		if err := s.remote.Create(ctx, &o); err != nil {
			if !errors.Is(err, ErrRemoteRejected) || !s.existsRemotely(ctx, o.ID) {
				return moved, err
			}
		}
		if err := s.settle(ctx, o); err != nil {
			return moved, err
		}
		moved++
		s.logger.Info("local order synced to remote store", zap.String("order_id", o.ID))
	}
	return moved, nil
}

// settle drops the local copy of a pushed order. A status change made
// locally after the pass read the list is pushed to the remote store first.
func (s *OutboxSyncer) settle(ctx context.Context, o models.Order) error {
	for {
		current, err := s.local.RemoveUnchanged(o)
		if err != nil || current == nil {
			return err
		}
		if err := s.remote.UpdateStatus(ctx, current.ID, current.Status); err != nil {
			return err
		}
		s.logger.Info("local status change pushed to remote store",
			zap.String("order_id", current.ID),
			zap.String("status", string(current.Status)))
		o = *current
	}
}

func (s *OutboxSyncer) existsRemotely(ctx context.Context, id string) bool {
	_, err := s.remote.GetByID(ctx, id)
	return err == nil
}

// Run drains on every tick until ctx is cancelled. After a failed pass the
// delay doubles, capped at the max backoff; a clean pass resets it.
func (s *OutboxSyncer) Run(ctx context.Context) {
	delay := s.interval
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		moved, err := s.Drain(ctx)
		if err != nil && ctx.Err() == nil {
			delay *= 2
			if delay > s.maxBackoff {
				delay = s.maxBackoff
			}
			s.logger.Warn("outbox drain failed",
				zap.Int("moved", moved),
				zap.Duration("retry_in", delay),
				zap.String("kind", repositories.FailureKind(err)),
				zap.Error(err))
		} else {
			delay = s.interval
		}
		timer.Reset(delay)
	}
}
