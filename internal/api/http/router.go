package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Tickets     *handlers.TicketsHandler
	Documents   *handlers.DocumentsHandler
	Resolutions *handlers.ResolutionsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")

	api.Post("/tickets", cfg.Tickets.SubmitTicket)
	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Post("/tickets/batch", cfg.Tickets.IngestBatch)
	api.Get("/tickets/search", cfg.Tickets.SearchTickets)
	api.Get("/tickets/:id", cfg.Tickets.GetTicket)
	api.Delete("/tickets/:id", cfg.Tickets.DeleteTicket)
	api.Post("/tickets/:id/resolve", cfg.Tickets.ResolveTicket)

	api.Post("/resolutions", cfg.Resolutions.Resolve)

	api.Post("/documents", cfg.Documents.CreateDocument)
	api.Get("/documents/search", cfg.Documents.SearchDocuments)
	api.Get("/documents", cfg.Documents.ListDocuments)
	api.Get("/documents/:id", cfg.Documents.GetDocument)
	api.Delete("/documents/:id", cfg.Documents.DeleteDocument)
}
