package repositories

import (
	"context"

	"configurator/internal/models"
)

// OrderRepository defines the interface for the remote order store.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// List returns the orders in scope, newest first.
	List(ctx context.Context, scope models.OrderScope) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error
}
