package handlers

import (
	"configurator/internal/models"
	"configurator/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ConfiguratorHandler serves the catalog and the draft handoff.
type ConfiguratorHandler struct {
	drafts   *services.DraftService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewConfiguratorHandler creates a new ConfiguratorHandler.
func NewConfiguratorHandler(drafts *services.DraftService, logger *zap.Logger) *ConfiguratorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfiguratorHandler{drafts: drafts, validate: validator.New(), logger: logger}
}

// RegisterRoutes registers the catalog and draft routes. Draft routes need requireAuth.
func (h *ConfiguratorHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	router.Get("/catalog", h.HandleGetCatalog)
	draftRoutes := router.Group("/configurator", requireAuth)
	draftRoutes.Post("/draft", h.HandleSubmitDraft)
	draftRoutes.Get("/draft", h.HandleGetDraft)
}

// DraftRequest is the full set of wizard selections.
type DraftRequest struct {
	Variant        string   `json:"variant" validate:"omitempty,oneof=standard exclusive"`
	Model          string   `json:"model" validate:"max=64"`
	ExteriorColor  string   `json:"exterior_color" validate:"max=64"`
	Interior       string   `json:"interior" validate:"max=64"`
	Performance    string   `json:"performance" validate:"max=64"`
	Wheels         string   `json:"wheels" validate:"max=64"`
	Aero           []string `json:"aero" validate:"max=16,dive,max=64"`
	Technology     []string `json:"technology" validate:"max=16,dive,max=64"`
	Customizations string   `json:"customizations" validate:"max=2000"`
}

func (r DraftRequest) selections() models.Selections {
	variant := models.DraftVariant(r.Variant)
	if variant == "" {
		variant = models.VariantStandard
	}
	return models.Selections{
		Variant:        variant,
		Model:          r.Model,
		ExteriorColor:  r.ExteriorColor,
		Interior:       r.Interior,
		Performance:    r.Performance,
		Wheels:         r.Wheels,
		Aero:           r.Aero,
		Technology:     r.Technology,
		Customizations: r.Customizations,
	}
}

// HandleGetCatalog returns every model and option with display prices.
func (h *ConfiguratorHandler) HandleGetCatalog(c *fiber.Ctx) error {
	return c.JSON(h.drafts.Catalog())
}

// HandleSubmitDraft prices the selections and parks the draft for payment.
func (h *ConfiguratorHandler) HandleSubmitDraft(c *fiber.Ctx) error {
	var req DraftRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	draft, err := h.drafts.Submit(session(c).UserID, req.selections())
	if err != nil {
		h.logger.Debug("draft rejected", zap.Error(err))
		return failure(c, "Could not create order draft", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order draft created",
		"draft":   draft,
	})
}

// HandleGetDraft returns the pending draft without consuming it.
func (h *ConfiguratorHandler) HandleGetDraft(c *fiber.Ctx) error {
	draft, err := h.drafts.Pending(session(c).UserID)
	if err != nil {
		return failure(c, "No order draft pending", err)
	}
	return c.JSON(draft)
}
