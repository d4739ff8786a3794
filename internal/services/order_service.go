package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"configurator/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlaceholderDeliveryAddress is recorded when every address field is blank.
const PlaceholderDeliveryAddress = "Mock Delivery Address"

// EventPublisher publishes order lifecycle events.
type EventPublisher interface {
	PublishOrderCreated(orderData map[string]interface{}) error
}

// DeliveryAddress is the optional shipping address entered at payment.
type DeliveryAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// Format joins the non-blank address parts into one line, or returns the
// placeholder when street, city and country are all blank.
func (a DeliveryAddress) Format() string {
	street, city, country := strings.TrimSpace(a.Street), strings.TrimSpace(a.City), strings.TrimSpace(a.Country)
	if street == "" && city == "" && country == "" {
		return PlaceholderDeliveryAddress
	}
	region := strings.TrimSpace(strings.TrimSpace(a.State) + " " + strings.TrimSpace(a.ZipCode))
	parts := make([]string, 0, 4)
	for _, p := range []string{street, city, region, country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// PaymentInput is what the payment step collects. Only the card type, last
// four digits and holder name are kept.
type PaymentInput struct {
	CardNumber string
	CardName   string
	Address    DeliveryAddress
}

// OrderService handles business logic related to orders: confirming a draft
// into an order, listing and tracking orders, and applying status changes.
type OrderService struct {
	gateway   *OrderGateway
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(gateway *OrderGateway, publisher EventPublisher, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		gateway:   gateway,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// ConfirmPayment turns a draft into an order for the session's user and
// persists it. The draft's fields and price are copied verbatim.
func (s *OrderService) ConfirmPayment(ctx context.Context, session models.Session, draft models.OrderDraft, in PaymentInput) (*models.Order, models.Store, error) {
	if session.UserID == "" {
		return nil, "", fmt.Errorf("%w: no user on session", ErrInvalidCredentials)
	}
	if draft.Model == "" || draft.Price == "" {
		return nil, "", ErrDraftNotFound
	}

	order := &models.Order{
		ID:              s.newID(),
		UserID:          session.UserID,
		Model:           draft.Model,
		Color:           draft.ExteriorColor,
		Interior:        draft.Interior,
		Customizations:  draft.Summary(),
		Price:           draft.Price,
		PaymentMethod:   models.PaymentMethodMock,
		CardType:        models.DetectCardType(in.CardNumber),
		CardLastFour:    models.LastFour(in.CardNumber),
		CardHolderName:  strings.TrimSpace(in.CardName),
		DeliveryAddress: in.Address.Format(),
		Status:          models.StatusProcessing,
		CreatedAt:       s.now().UTC(),
	}

	store, err := s.gateway.CreateOrder(ctx, order)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("order confirmed",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.String("store", string(store)))

	s.publishCreated(order, store)
	return order, store, nil
}

func (s *OrderService) publishCreated(order *models.Order, store models.Store) {
	if s.publisher == nil {
		s.logger.Debug("event publisher not configured, skipping order.created")
		return
	}
	orderCreatedMessage := map[string]interface{}{
		"orderID": order.ID,
		"userID":  order.UserID,
		"model":   order.Model,
		"status":  order.Status,
		"price":   order.Price,
		"store":   store,
	}
	if err := s.publisher.PublishOrderCreated(orderCreatedMessage); err != nil {
		s.logger.Warn("failed to publish order created event",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.gateway.ListOrders(ctx, models.UserOrders(userID))
}

// TrackOrders returns the status view of each of the user's orders.
func (s *OrderService) TrackOrders(ctx context.Context, userID string) ([]StatusView, error) {
	orders, err := s.ListOrders(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]StatusView, 0, len(orders))
	for _, o := range orders {
		views = append(views, TrackStatus(o))
	}
	return views, nil
}

// UpdateOrderStatus applies a status change made by an operator.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, status string) (models.Store, error) {
	parsed, ok := models.ParseOrderStatus(status)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	store, err := s.gateway.UpdateStatus(ctx, id, parsed)
	if err != nil {
		return "", fmt.Errorf("failed to update order status for order %s: %w", id, err)
	}
	s.logger.Info("order status updated",
		zap.String("order_id", id),
		zap.String("status", string(parsed)),
		zap.String("store", string(store)))
	return store, nil
}
