package services

import (
	"context"
	"reflect"
	"time"

	"configurator/internal/models"

	"go.uber.org/zap"
)

// DefaultTrackerInterval is how often an active tracking view refreshes.
const DefaultTrackerInterval = 30 * time.Second

// StageView is one step of the fixed status progression.
type StageView struct {
	ID        models.OrderStatus `json:"id"`
	Label     string             `json:"label"`
	Completed bool               `json:"completed"`
	Current   bool               `json:"current"`
}

// StatusView is the display model of an order's progress.
type StatusView struct {
	OrderID    string      `json:"order_id"`
	Model      string      `json:"model"`
	Price      string      `json:"price"`
	Status     string      `json:"status"`
	StageIndex int         `json:"stage_index"`
	Stages     []StageView `json:"stages"`
}

// TrackStatus maps the order's status onto the five-stage progression.
// Unknown statuses yield index -1 with no stage completed.
func TrackStatus(order models.Order) StatusView {
	idx := order.Status.Index()
	stages := make([]StageView, len(models.StatusProgression))
	for i, s := range models.StatusProgression {
		stages[i] = StageView{
			ID:        s,
			Label:     s.Label(),
			Completed: idx >= 0 && i <= idx,
			Current:   i == idx,
		}
	}
	return StatusView{
		OrderID:    order.ID,
		Model:      order.Model,
		Price:      order.Price,
		Status:     string(order.Status),
		StageIndex: idx,
		Stages:     stages,
	}
}

// StatusPoller refreshes tracking views on a fixed interval while its context lives.
type StatusPoller struct {
	interval time.Duration
	logger   *zap.Logger
}

// NewStatusPoller creates a poller. A non-positive interval uses DefaultTrackerInterval.
func NewStatusPoller(interval time.Duration, logger *zap.Logger) *StatusPoller {
	if interval <= 0 {
		interval = DefaultTrackerInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusPoller{interval: interval, logger: logger}
}

// Run fetches immediately and then on every tick, calling onChange only when
// the views differ from the last delivered ones. A failed fetch keeps the last
// views. Run returns when ctx is cancelled; in-flight fetches see the same ctx.
func (p *StatusPoller) Run(ctx context.Context, fetch func(context.Context) ([]StatusView, error), onChange func([]StatusView)) {
	var (
		last      []StatusView
		delivered bool
	)
	poll := func() {
		views, err := fetch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Warn("status refresh failed", zap.Error(err))
			}
			return
		}
		if delivered && reflect.DeepEqual(last, views) {
			return
		}
		last, delivered = views, true
		onChange(views)
	}

	poll()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}
