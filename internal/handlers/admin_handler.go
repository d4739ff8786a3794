package handlers

import (
	"bytes"
	"fmt"
	"time"

	"configurator/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminHandler serves the admin dashboard endpoints.
type AdminHandler struct {
	admin    *services.AdminService
	orders   *services.OrderService
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin *services.AdminService, orders *services.OrderService, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		admin:    admin,
		orders:   orders,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// RegisterRoutes registers the admin routes behind the given guards.
func (h *AdminHandler) RegisterRoutes(router fiber.Router, guards ...fiber.Handler) {
	adminRoutes := router.Group("/admin", guards...)
	adminRoutes.Get("/orders", h.HandleListOrders)
	adminRoutes.Get("/orders/export", h.HandleExport)
	adminRoutes.Patch("/orders/:id/status", h.HandleUpdateOrderStatus)
}

func (h *AdminHandler) filtered(c *fiber.Ctx) ([]services.AdminOrder, error) {
	var filter services.AdminFilter
	if err := c.QueryParser(&filter); err != nil {
		return nil, err
	}
	orders, err := h.admin.ListAllOrders(c.UserContext())
	if err != nil {
		return nil, err
	}
	return services.FilterOrders(orders, filter), nil
}

// HandleListOrders returns every order with owner details, filtered by the
// search and status query parameters.
func (h *AdminHandler) HandleListOrders(c *fiber.Ctx) error {
	orders, err := h.filtered(c)
	if err != nil {
		return failure(c, "Could not retrieve orders", err)
	}
	return c.JSON(fiber.Map{
		"orders": orders,
		"count":  len(orders),
	})
}

// HandleExport downloads the filtered orders as CSV.
func (h *AdminHandler) HandleExport(c *fiber.Ctx) error {
	orders, err := h.filtered(c)
	if err != nil {
		return failure(c, "Could not export orders", err)
	}

	var buf bytes.Buffer
	if err := services.ExportCSV(&buf, orders); err != nil {
		h.logger.Error("csv export failed", zap.Error(err))
		return failure(c, "Could not export orders", err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", services.ExportFilename(h.now())))
	return c.Send(buf.Bytes())
}

// StatusUpdateRequest is the body of a status change.
type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=processing manufacturing quality_check shipping delivered"`
}

// HandleUpdateOrderStatus updates the status of an existing order.
func (h *AdminHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	orderID := c.Params("id")
	var req StatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	store, err := h.orders.UpdateOrderStatus(c.UserContext(), orderID, req.Status)
	if err != nil {
		h.logger.Warn("status update failed", zap.String("order_id", orderID), zap.Error(err))
		return failure(c, fmt.Sprintf("Could not update status of order %s", orderID), err)
	}
	return c.JSON(fiber.Map{
		"message": "Order status updated successfully",
		"id":      orderID,
		"status":  req.Status,
		"store":   store,
	})
}
