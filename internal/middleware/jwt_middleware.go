package middleware

import (
	"strings"

	"configurator/internal/models"
	"configurator/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SessionKey is the Fiber locals key the verified session is stored under.
const SessionKey = "session"

// AdminDeniedMessage is the fixed body of a denied admin request.
const AdminDeniedMessage = "Access denied. Admin privileges required."

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		session, err := authService.ValidateToken(parts[1])
		if err != nil {
			logger.Debug("jwt validation failed", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}

		c.Locals(SessionKey, session)
		return c.Next()
	}
}

// AdminRequired runs the admin gate on the session set by AuthRequired.
func AdminRequired(gate *services.AdminGate, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		session := CurrentSession(c)
		switch gate.Check(session) {
		case services.AdminGranted:
			return c.Next()
		case services.AdminUnauthenticated:
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication required",
			})
		default:
			logger.Info("admin access denied",
				zap.String("user_id", session.UserID),
				zap.String("path", c.Path()))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": AdminDeniedMessage,
			})
		}
	}
}

// CurrentSession returns the verified session of the request, or nil.
func CurrentSession(c *fiber.Ctx) *models.Session {
	session, _ := c.Locals(SessionKey).(*models.Session)
	return session
}
