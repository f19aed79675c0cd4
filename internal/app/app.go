// Package app wires configuration, stores, services and HTTP routes into a
// runnable Fiber application.
package app

import (
	"context"
	"fmt"
	"time"

	"freshharvest/internal/config"
	"freshharvest/internal/database"
	"freshharvest/internal/handlers"
	"freshharvest/internal/middleware"
	"freshharvest/internal/repositories"
	"freshharvest/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Repositories groups the stores the services run on.
type Repositories struct {
	Products repositories.ProductRepository
	Users    repositories.UserRepository
	Orders   repositories.OrderRepository
}

// NewMemoryRepositories returns empty in-memory stores.
func NewMemoryRepositories() Repositories {
	return Repositories{
		Products: repositories.NewInMemoryProductRepository(),
		Users:    repositories.NewInMemoryUserRepository(),
		Orders:   repositories.NewInMemoryOrderRepository(),
	}
}

// NewGORMRepositories returns stores backed by db.
func NewGORMRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Products: repositories.NewGORMProductRepository(db),
		Users:    repositories.NewGORMUserRepository(db),
		Orders:   repositories.NewGORMOrderRepository(db),
	}
}

// OpenRepositories builds the stores selected by cfg.DBDriver. The returned
// close function releases the database connection, if any.
func OpenRepositories(cfg *config.Config, logger zerolog.Logger) (Repositories, func() error, error) {
	if cfg.DBDriver == config.DriverMemory {
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
		return NewMemoryRepositories(), func() error { return nil }, nil
	}

	db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN, logger)
	if err != nil {
		return Repositories{}, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return Repositories{}, nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	return NewGORMRepositories(db), sqlDB.Close, nil
}

// App is the assembled HTTP application.
type App struct {
	Fiber     *fiber.App
	Auth      *services.AuthService
	Orders    *services.OrderService
	Products  *services.ProductService
	Dashboard *services.DashboardService
}

// New builds the services and routes. publisher may be nil to disable order
// events.
func New(cfg *config.Config, repos Repositories, publisher services.EventPublisher, logger zerolog.Logger, opts ...services.OrderServiceOption) *App {
	authService := services.NewAuthService(repos.Users, cfg.JWTSecret, cfg.JWTTTL, logger)
	productService := services.NewProductService(repos.Products, repos.Users, logger)
	orderService := services.NewOrderService(repos.Orders, repos.Products, repos.Users, publisher, logger, opts...)
	dashboardService := services.NewDashboardService(repos.Orders, repos.Products, repos.Users, logger)

	app := fiber.New(fiber.Config{
		AppName:               "freshharvest",
		ErrorHandler:          handlers.ErrorHandler(logger),
		DisableStartupMessage: true,
	})

	app.Use(middleware.Recover(logger))
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(logger.With().Str("component", "http").Logger()))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"events": publisher != nil,
		})
	})

	auth := middleware.AuthRequired(authService, logger.With().Str("component", "auth").Logger())

	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(authService, logger).RegisterRoutes(apiV1, auth)
	handlers.NewProductHandler(productService, logger).RegisterRoutes(apiV1, auth)
	handlers.NewOrderHandler(orderService, logger).RegisterRoutes(apiV1, auth)
	handlers.NewAdminHandler(authService, dashboardService, logger).RegisterRoutes(apiV1, auth)

	return &App{
		Fiber:    app,
		Auth:     authService,
		Orders:    orderService,
		Products:  productService,
		Dashboard: dashboardService,
	}
}

// SeedAdmin ensures the configured default admin account exists.
func (a *App) SeedAdmin(ctx context.Context, cfg *config.Config) error {
	if !cfg.SeedAdmin() {
		return nil
	}
	_, err := a.Auth.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
	return err
}
