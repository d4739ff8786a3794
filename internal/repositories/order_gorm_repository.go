package repositories

import (
	"context"
	"fmt"

	"configurator/internal/models"

	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository backed by the orders table.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// Create inserts the full order record. The caller supplies the ID.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		return fmt.Errorf("%w: order ID is required", ErrRemoteRejected)
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order %s: %w", order.ID, ClassifyRemoteError(err))
	}
	return nil
}

// GetByID retrieves a single order by its ID.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, ClassifyRemoteError(err))
	}
	return &order, nil
}

// List retrieves the orders in scope ordered by creation time, newest first.
func (r *GORMOrderRepository) List(ctx context.Context, scope models.OrderScope) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if !scope.All() {
		q = q.Where("user_id = ?", scope.UserID)
	}
	var orders []models.Order
	if err := q.Order("created_at DESC").Order("id").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", ClassifyRemoteError(err))
	}
	return orders, nil
}

// UpdateStatus sets the status column of an existing order.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update status of order %s: %w", id, ClassifyRemoteError(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %s not found for status update: %w", id, ErrNotFound)
	}
	return nil
}
