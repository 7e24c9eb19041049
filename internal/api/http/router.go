package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nabha-health/telehealth-auth/internal/api/http/handlers"
	"github.com/nabha-health/telehealth-auth/internal/auth"
	"github.com/nabha-health/telehealth-auth/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/otp/request", cfg.Auth.RequestCode)
	authGroup.Post("/otp/verify", cfg.Auth.VerifyCode)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)

	authGroup.Get("/profile", cfg.AuthMiddleware.Handle, cfg.Auth.Profile)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireRoles(domain.Roles...), cfg.Auth.ChangePassword)

	admin := authGroup.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRoles(domain.RoleAdmin))
	admin.Post("/identities", cfg.Auth.ProvisionIdentity)
}
