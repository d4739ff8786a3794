package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"configurator/internal/catalog"
	"configurator/internal/config"
	"configurator/internal/handlers"
	"configurator/internal/models"
	"configurator/internal/repositories"
	"configurator/internal/services"
	"configurator/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// application is the fully wired service.
type application struct {
	cfg    config.Config
	logger *zap.Logger

	db       *gorm.DB
	mq       *rabbitmq.Client
	local    *repositories.LocalOrderStore
	gateway  *services.OrderGateway
	outbox   *services.OutboxSyncer
	auth     *services.AuthService
	drafts   *services.DraftService
	orders   *services.OrderService
	admin    *services.AdminService
	profiles *services.ProfileService
	poller   *services.StatusPoller
}

// buildApplication wires repositories and services. With inMemory set the
// remote store is the in-process mock and nothing touches disk.
func buildApplication(cfg config.Config, logger *zap.Logger, inMemory bool) (*application, error) {
	a := &application{cfg: cfg, logger: logger}

	var (
		orderRepo   repositories.OrderRepository
		userRepo    repositories.UserRepository
		profileRepo repositories.ProfileRepository
		kv          repositories.KeyValueStore
	)
	if inMemory {
		orderRepo = repositories.NewMockOrderRepository()
		userRepo = repositories.NewMockUserRepository()
		profileRepo = repositories.NewMockProfileRepository()
		kv = repositories.NewMemoryKeyValueStore()
	} else {
		db, err := repositories.OpenDatabase(cfg.DatabaseDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if err := repositories.Migrate(db); err != nil {
			// The remote store may come up later; every call degrades to local storage until then.
			logger.Warn("database migration failed, continuing with local fallback", zap.Error(err))
		}
		a.db = db
		orderRepo = repositories.NewGORMOrderRepository(db)
		userRepo = repositories.NewGORMUserRepository(db)
		profileRepo = repositories.NewGORMProfileRepository(db)

		fileKV, err := repositories.NewFileKeyValueStore(cfg.LocalStoreDir)
		if err != nil {
			a.close()
			return nil, err
		}
		kv = fileKV
	}

	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Logger: logger})
		if err != nil {
			logger.Warn("rabbitmq unavailable, order events disabled", zap.Error(err))
		} else {
			a.mq = mq
			publisher = mq
		}
	}

	a.local = repositories.NewLocalOrderStore(kv)
	a.gateway = services.NewOrderGateway(orderRepo, a.local, logger)
	a.outbox = services.NewOutboxSyncer(orderRepo, a.local, cfg.OutboxInterval, cfg.OutboxMaxBackoff, logger)
	a.auth = services.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL,
		services.AdminCredentials{Email: cfg.AdminEmail, Password: cfg.AdminPassword}, logger)
	a.drafts = services.NewDraftService(catalog.Default(), services.NewDraftStore(), logger)
	a.orders = services.NewOrderService(a.gateway, publisher, logger)
	a.admin = services.NewAdminService(a.gateway, userRepo, profileRepo, logger)
	a.profiles = services.NewProfileService(profileRepo, kv, logger)
	a.poller = services.NewStatusPoller(cfg.TrackerInterval, logger)
	return a, nil
}

// close releases the database and broker connections.
func (a *application) close() {
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			a.logger.Warn("error closing rabbitmq client", zap.Error(err))
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// httpApp builds the Fiber app with every route mounted.
func (a *application) httpApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "configurator",
		DisableStartupMessage: true,
	})
	app.Use(fiberlogger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		pending, err := a.local.List(models.AllOrders())
		body := fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"rabbitmq": "disabled",
		}
		if a.mq != nil {
			body["rabbitmq"] = "connected"
		}
		if err != nil {
			body["local_store"] = err.Error()
		} else {
			body["pending_local_orders"] = len(pending)
		}
		return c.Status(fiber.StatusOK).JSON(body)
	})

	handlers.Mount(app.Group("/api/v1"), handlers.Services{
		Auth:     a.auth,
		Drafts:   a.drafts,
		Orders:   a.orders,
		Admin:    a.admin,
		Profiles: a.profiles,
		Poller:   a.poller,
	}, a.logger)
	return app
}

// serve runs the HTTP server, the outbox syncer and the status consumer
// until ctx is cancelled, then shuts the server down gracefully.
func (a *application) serve(ctx context.Context) error {
	app := a.httpApp()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting server", zap.String("addr", a.cfg.AppPort))
		if err := app.Listen(a.cfg.AppPort); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.outbox.Run(gctx)
		return nil
	})

	if a.mq != nil {
		g.Go(func() error {
			err := a.mq.ConsumeStatusUpdates(gctx, func(ctx context.Context, u rabbitmq.StatusUpdate) error {
				_, err := a.orders.UpdateOrderStatus(ctx, u.OrderID, u.Status)
				return err
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn("status consumer stopped", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down server")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			a.logger.Warn("error during fiber shutdown", zap.Error(err))
		}
		return nil
	})

	err := g.Wait()
	a.logger.Info("server gracefully stopped")
	return err
}
