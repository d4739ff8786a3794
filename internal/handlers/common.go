package handlers

import (
	"errors"
	"fmt"

	"configurator/internal/middleware"
	"configurator/internal/models"
	"configurator/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// validationFailed renders validator errors the same way for every handler.
func validationFailed(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidationIncomplete):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidOption), errors.Is(err, services.ErrInvalidStatus):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrDraftNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrEmailTaken):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrLocalStorageUnavailable), errors.Is(err, services.ErrRemoteUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func failure(c *fiber.Ctx, message string, err error) error {
	body := fiber.Map{
		"message": message,
		"error":   err.Error(),
	}
	var incomplete *services.IncompleteError
	if errors.As(err, &incomplete) {
		body["missing"] = incomplete.Missing
	}
	return c.Status(statusFor(err)).JSON(body)
}

func session(c *fiber.Ctx) *models.Session {
	if s := middleware.CurrentSession(c); s != nil {
		return s
	}
	return &models.Session{}
}
