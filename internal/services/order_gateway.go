package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"configurator/internal/models"
	"configurator/internal/repositories"

	"go.uber.org/zap"
)

const defaultRemoteTimeout = 10 * time.Second

// OrderGateway writes and reads orders against the remote store, degrading to
// the local fallback list when the remote store fails. Each call makes one
// remote attempt; the local path only runs after that attempt has failed.
type OrderGateway struct {
	remote        repositories.OrderRepository
	local         *repositories.LocalOrderStore
	logger        *zap.Logger
	remoteTimeout time.Duration
}

// NewOrderGateway creates a new OrderGateway.
func NewOrderGateway(remote repositories.OrderRepository, local *repositories.LocalOrderStore, logger *zap.Logger) *OrderGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderGateway{
		remote:        remote,
		local:         local,
		logger:        logger,
		remoteTimeout: defaultRemoteTimeout,
	}
}

// SetRemoteTimeout bounds each remote call.
func (g *OrderGateway) SetRemoteTimeout(d time.Duration) {
	if d > 0 {
		g.remoteTimeout = d
	}
}

func (g *OrderGateway) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.remoteTimeout)
}

// CreateOrder persists the order in exactly one store. A remote failure of
// any kind is logged and the order is prepended to the local list instead.
// An error is returned only when the local store fails as well.
func (g *OrderGateway) CreateOrder(ctx context.Context, order *models.Order) (models.Store, error) {
	rctx, cancel := g.remoteCtx(ctx)
	err := g.remote.Create(rctx, order)
	cancel()
	if err == nil {
		return models.StoreRemote, nil
	}

	g.logger.Warn("remote order insert failed, using local fallback",
		zap.String("order_id", order.ID),
		zap.String("kind", repositories.FailureKind(err)),
		zap.Error(err))

	if lerr := g.local.Prepend(*order); lerr != nil {
		g.logger.Error("local fallback write failed",
			zap.String("order_id", order.ID),
			zap.Error(lerr))
		return "", fmt.Errorf("failed to persist order %s: %w", order.ID, errors.Join(err, lerr))
	}
	return models.StoreLocal, nil
}

// ListOrders returns the orders in scope, newest first. When the remote read
// succeeds, orders still waiting in the local list are merged in; when it
// fails, the local list alone is returned. Failures are logged, never returned.
func (g *OrderGateway) ListOrders(ctx context.Context, scope models.OrderScope) ([]models.Order, error) {
	rctx, cancel := g.remoteCtx(ctx)
	remote, err := g.remote.List(rctx, scope)
	cancel()

	local, lerr := g.local.List(scope)
	if lerr != nil {
		g.logger.Warn("local order list unreadable",
			zap.String("user_id", scope.UserID),
			zap.Error(lerr))
		local = nil
	}

	if err != nil {
		g.logger.Warn("remote order query failed, using local fallback",
			zap.String("user_id", scope.UserID),
			zap.String("kind", repositories.FailureKind(err)),
			zap.Error(err))
		out := append([]models.Order{}, local...)
		repositories.SortNewestFirst(out)
		return out, nil
	}

	return mergeOrders(remote, local), nil
}

// GetOrder looks an order up remotely, then locally.
func (g *OrderGateway) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	rctx, cancel := g.remoteCtx(ctx)
	o, err := g.remote.GetByID(rctx, id)
	cancel()
	if err == nil {
		return o, nil
	}
	local, lerr := g.local.List(models.AllOrders())
	if lerr == nil {
		for _, l := range local {
			if l.ID == id {
				return &l, nil
			}
		}
	}
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return nil, fmt.Errorf("order %s not found in local store after remote failure: %w", id, ErrNotFound)
}

// UpdateStatus applies an out-of-band status change to whichever store holds
// the order. The remote store is tried first.
func (g *OrderGateway) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (models.Store, error) {
	rctx, cancel := g.remoteCtx(ctx)
	err := g.remote.UpdateStatus(rctx, id, status)
	cancel()
	if err == nil {
		return models.StoreRemote, nil
	}
	if !errors.Is(err, ErrNotFound) {
		g.logger.Warn("remote status update failed, trying local store",
			zap.String("order_id", id),
			zap.String("kind", repositories.FailureKind(err)),
			zap.Error(err))
	}
	if lerr := g.local.UpdateStatus(id, status); lerr != nil {
		if errors.Is(err, ErrNotFound) && errors.Is(lerr, ErrNotFound) {
			return "", fmt.Errorf("order with ID %s not found for status update: %w", id, ErrNotFound)
		}
		return "", fmt.Errorf("failed to update status of order %s: %w", id, errors.Join(err, lerr))
	}
	return models.StoreLocal, nil
}

func mergeOrders(remote, local []models.Order) []models.Order {
	seen := make(map[string]bool, len(remote))
	out := make([]models.Order, 0, len(remote)+len(local))
	for _, o := range remote {
		seen[o.ID] = true
		out = append(out, o)
	}
	for _, o := range local {
		if !seen[o.ID] {
			seen[o.ID] = true
			out = append(out, o)
		}
	}
	repositories.SortNewestFirst(out)
	return out
}
