// Package http provides the inbound HTTP adapter including routing and server lifecycle.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openfabrik/datakit/internal/adapters/http/handlers"
	"github.com/openfabrik/datakit/internal/adapters/http/middleware"
)

// NewRouter creates an HTTP handler with all application routes registered.
// Middleware is applied globally, the first argument outermost.
func NewRouter(
	customerHandler *handlers.CustomerHandler,
	healthHandler *handlers.HealthHandler,
	middlewares ...func(http.Handler) http.Handler,
) http.Handler {
	r := chi.NewRouter()

	if len(middlewares) > 0 {
		r.Use(middleware.Chain(middlewares...))
	}

	// Health endpoints (outside /api/v1 prefix).
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	// API v1 routes.
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/customers", customerHandler.ListCustomers)
		r.Post("/customers", customerHandler.CreateCustomer)
		r.Patch("/customers", customerHandler.BulkUpdateCustomers)
		r.Get("/customers/search", customerHandler.SearchCustomers)
		r.Get("/customers/{id}", customerHandler.GetCustomer)
		r.Head("/customers/{id}", customerHandler.HeadCustomer)
		r.Patch("/customers/{id}", customerHandler.UpdateCustomer)
		r.Delete("/customers/{id}", customerHandler.DeleteCustomer)
		r.Post("/customers/{id}/restore", customerHandler.RestoreCustomer)
	})

	return r
}
