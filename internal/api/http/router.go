package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-bridge/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Webhooks *handlers.WebhooksHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	webhooks := app.Group("/webhooks")
	webhooks.Post("/connectwise", cfg.Webhooks.ConnectWise)
	webhooks.Post("/pagerduty", cfg.Webhooks.PagerDuty)
}
