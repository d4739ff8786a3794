package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"configurator/internal/models"
)

// MockOrderRepository is an in-memory implementation of OrderRepository. It
// can be switched offline to stand in for an unreachable remote store.
type MockOrderRepository struct {
	orders  map[string]models.Order
	offline bool
	mu      sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// SetOffline makes every subsequent call fail with ErrRemoteUnavailable.
func (r *MockOrderRepository) SetOffline(offline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offline = offline
}

func (r *MockOrderRepository) unavailable() error {
	return fmt.Errorf("%w: in-memory store is offline", ErrRemoteUnavailable)
}

// Create adds a new order.
func (r *MockOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.offline {
		return r.unavailable()
	}
	if order.ID == "" {
		return fmt.Errorf("%w: order ID is required", ErrRemoteRejected)
	}
	if _, exists := r.orders[order.ID]; exists {
		return fmt.Errorf("%w: duplicate order ID %s", ErrRemoteRejected, order.ID)
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	r.orders[order.ID] = *order
	return nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.offline {
		return nil, r.unavailable()
	}
	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s not found: %w", id, ErrNotFound)
	}
	return &order, nil
}

// List returns the orders in scope, newest first.
func (r *MockOrderRepository) List(_ context.Context, scope models.OrderScope) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.offline {
		return nil, r.unavailable()
	}
	orderList := make([]models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if scope.Matches(order) {
			orderList = append(orderList, order)
		}
	}
	SortNewestFirst(orderList)
	return orderList, nil
}

// UpdateStatus updates the status of an order.
func (r *MockOrderRepository) UpdateStatus(_ context.Context, id string, status models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.offline {
		return r.unavailable()
	}
	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %s not found for status update: %w", id, ErrNotFound)
	}
	order.Status = status
	r.orders[id] = order
	return nil
}

// SortNewestFirst orders by creation time descending, breaking ties by ID so
// repeated listings come back in the same order.
func SortNewestFirst(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})
}
