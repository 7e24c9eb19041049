package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nabha-health/telehealth-auth/internal/config"
	"github.com/nabha-health/telehealth-auth/internal/observability"
)

// NewServer builds the Fiber app with middlewares and routes registered.
func NewServer(cfg config.AppConfig, logger *zap.Logger, metrics *observability.Metrics, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.Name,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.RequestTimeout,
		WriteTimeout:          cfg.RequestTimeout,
	})
	RegisterMiddlewares(app, logger, metrics, cfg.RequestTimeout)
	RegisterRoutes(app, routes)
	return app
}
