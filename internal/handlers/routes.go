package handlers

import (
	"configurator/internal/middleware"
	"configurator/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Services are the dependencies the HTTP API is built on.
type Services struct {
	Auth     *services.AuthService
	Drafts   *services.DraftService
	Orders   *services.OrderService
	Admin    *services.AdminService
	Profiles *services.ProfileService
	Poller   *services.StatusPoller
}

// Mount registers every API route under router.
func Mount(router fiber.Router, s Services, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	requireAuth := middleware.AuthRequired(s.Auth, logger)
	requireAdmin := middleware.AdminRequired(s.Auth.Gate(), logger)

	NewAuthHandler(s.Auth, logger).RegisterRoutes(router)
	NewConfiguratorHandler(s.Drafts, logger).RegisterRoutes(router, requireAuth)
	NewOrderHandler(s.Orders, s.Drafts, s.Poller, logger).RegisterRoutes(router, requireAuth)
	NewProfileHandler(s.Profiles, logger).RegisterRoutes(router, requireAuth)
	NewAdminHandler(s.Admin, s.Orders, logger).RegisterRoutes(router, requireAuth, requireAdmin)
}
