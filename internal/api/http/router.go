package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/employee-service/internal/api/http/handlers"
	"github.com/spec-kit/employee-service/internal/auth"
	"github.com/spec-kit/employee-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Employees      *handlers.EmployeesHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Health)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Require(nil), cfg.Auth.Me)

	employees := api.Group("/employees", cfg.AuthMiddleware.Require(auth.EmployeeManagers))
	employees.Post("/", cfg.Employees.Create)
	employees.Get("/", cfg.Employees.List)
	employees.Get("/:id", cfg.Employees.Get)
	employees.Put("/:id", cfg.Employees.Update)
	employees.Delete("/:id", cfg.Employees.Delete)
}
