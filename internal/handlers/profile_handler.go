package handlers

import (
	"configurator/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProfileHandler handles onboarding profile requests.
type ProfileHandler struct {
	profiles *services.ProfileService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles *services.ProfileService, logger *zap.Logger) *ProfileHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileHandler{profiles: profiles, validate: validator.New(), logger: logger}
}

// RegisterRoutes registers the profile routes behind requireAuth.
func (h *ProfileHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	profileRoutes := router.Group("/profile", requireAuth)
	profileRoutes.Put("/", h.HandleSaveProfile)
	profileRoutes.Get("/", h.HandleGetProfile)
}

// HandleSaveProfile stores the onboarding form.
func (h *ProfileHandler) HandleSaveProfile(c *fiber.Ctx) error {
	var in services.ProfileInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}

	profile, store, err := h.profiles.Save(c.UserContext(), session(c).UserID, in)
	if err != nil {
		h.logger.Error("profile save failed", zap.String("user_id", session(c).UserID), zap.Error(err))
		return failure(c, "Could not save profile", err)
	}
	return c.JSON(fiber.Map{
		"message": "Profile saved",
		"profile": profile,
		"store":   store,
	})
}

// HandleGetProfile returns the user's profile.
func (h *ProfileHandler) HandleGetProfile(c *fiber.Ctx) error {
	profile, err := h.profiles.Get(c.UserContext(), session(c).UserID)
	if err != nil {
		return failure(c, "Profile not found", err)
	}
	return c.JSON(profile)
}
