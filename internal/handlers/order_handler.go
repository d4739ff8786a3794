package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"configurator/internal/models"
	"configurator/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const streamKeepAlive = 15 * time.Second

// OrderHandler handles payment, order history and tracking requests.
type OrderHandler struct {
	orders   *services.OrderService
	drafts   *services.DraftService
	poller   *services.StatusPoller
	validate *validator.Validate
	logger   *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders *services.OrderService, drafts *services.DraftService, poller *services.StatusPoller, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{
		orders:   orders,
		drafts:   drafts,
		poller:   poller,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes registers the payment and order routes behind requireAuth.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	router.Post("/payment", requireAuth, h.HandlePayment)
	orderRoutes := router.Group("/orders", requireAuth)
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/tracking", h.HandleTracking)
	orderRoutes.Get("/tracking/stream", h.HandleTrackingStream)
}

// PaymentRequest is the mock payment form. The CVV and expiry are checked
// for shape only and never stored.
type PaymentRequest struct {
	CardNumber string                   `json:"card_number" validate:"required,min=12,max=23"`
	CardName   string                   `json:"card_name" validate:"required,max=100"`
	Expiry     string                   `json:"expiry" validate:"required,max=7"`
	CVV        string                   `json:"cvv" validate:"required,numeric,min=3,max=4"`
	Address    services.DeliveryAddress `json:"address"`
}

// HandlePayment confirms the pending draft into an order. The draft is only
// consumed when the order was persisted.
func (h *OrderHandler) HandlePayment(c *fiber.Ctx) error {
	var req PaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}
	if digits := models.CardDigits(req.CardNumber); len(digits) < 12 || len(digits) > 19 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  fiber.Map{"CardNumber": "Field 'CardNumber' must contain 12 to 19 digits"},
		})
	}

	sess := session(c)
	var (
		order *models.Order
		store models.Store
	)
	err := h.drafts.Consume(sess.UserID, func(draft models.OrderDraft) error {
		var err error
		order, store, err = h.orders.ConfirmPayment(c.UserContext(), *sess, draft, services.PaymentInput{
			CardNumber: req.CardNumber,
			CardName:   req.CardName,
			Address:    req.Address,
		})
		return err
	})
	if err != nil {
		h.logger.Warn("payment failed", zap.String("user_id", sess.UserID), zap.Error(err))
		return failure(c, "Could not place order", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order placed successfully",
		"order":   order,
		"store":   store,
	})
}

// HandleGetOrders returns the user's order history, newest first.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.orders.ListOrders(c.UserContext(), session(c).UserID)
	if err != nil {
		return failure(c, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleTracking returns a snapshot of every order's progress.
func (h *OrderHandler) HandleTracking(c *fiber.Ctx) error {
	views, err := h.orders.TrackOrders(c.UserContext(), session(c).UserID)
	if err != nil {
		return failure(c, "Could not retrieve order status", err)
	}
	return c.JSON(views)
}

// HandleTrackingStream pushes tracking views as server-sent events whenever
// they change. The poller stops once a write to the client fails.
func (h *OrderHandler) HandleTrackingStream(c *fiber.Ctx) error {
	userID := session(c).UserID
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		updates := make(chan []services.StatusView, 1)
		done := make(chan struct{})
		go func() {
			defer close(done)
			h.poller.Run(ctx,
				func(ctx context.Context) ([]services.StatusView, error) {
					return h.orders.TrackOrders(ctx, userID)
				},
				func(views []services.StatusView) {
					select {
					case updates <- views:
					case <-ctx.Done():
					}
				})
		}()
		defer func() {
			cancel()
			<-done
		}()

		keepAlive := time.NewTicker(streamKeepAlive)
		defer keepAlive.Stop()
		for {
			select {
			case views := <-updates:
				data, err := json.Marshal(views)
				if err != nil {
					h.logger.Error("failed to encode tracking views", zap.Error(err))
					return
				}
				fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
			case <-keepAlive.C:
				fmt.Fprint(w, ": keep-alive\n\n")
			}
			if err := w.Flush(); err != nil {
				h.logger.Debug("tracking stream closed", zap.String("user_id", userID), zap.Error(err))
				return
			}
		}
	})
	return nil
}
