package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/registration-service/internal/api/http/handlers"
	"github.com/spec-kit/registration-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Registrations   *handlers.RegistrationsHandler
	Admin           *handlers.AdminHandler
	AdminMiddleware *auth.AdminMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Get("/check-pending-registration", cfg.Registrations.CheckPending)
	api.Post("/auth/register", cfg.Registrations.Register)
	api.Post("/simulate-admin-action", cfg.Registrations.Simulate)

	api.Post("/admin/login", cfg.Admin.Login)

	admin := api.Group("/admin", cfg.AdminMiddleware.Handle)
	admin.Get("/pending-registrations", cfg.Admin.ListPending)
	admin.Post("/approve-registration", cfg.Admin.Decide)
}
