package http_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/openfabrik/datakit/internal/adapters/http"
	"github.com/openfabrik/datakit/internal/adapters/http/handlers"
	"github.com/openfabrik/datakit/internal/adapters/memstore"
	"github.com/openfabrik/datakit/internal/app"
	"github.com/openfabrik/datakit/internal/apperr"
	"github.com/openfabrik/datakit/internal/domain/customer"
	"github.com/openfabrik/datakit/internal/platform/health"
	"github.com/openfabrik/datakit/internal/repository"
)

func newTestRouter(t *testing.T, middlewares ...func(http.Handler) http.Handler) http.Handler {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	store := memstore.New[*customer.Customer]("customers",
		func(c *customer.Customer) *customer.Customer { return c.Clone() })
	repo := repository.New[*customer.Customer]("customer", store, repository.DefaultConfig(), logger)
	service := app.NewService[*customer.Customer](repo, logger)

	customerHandler := handlers.NewCustomerHandler(service, apperr.NewHandler(logger))
	healthHandler := handlers.NewHealthHandler(health.New())

	return httpadapter.NewRouter(customerHandler, healthHandler, middlewares...)
}

func TestRouterRegistersRoutes(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health/live", http.StatusOK},
		{http.MethodGet, "/health/ready", http.StatusOK},
		{http.MethodGet, "/api/v1/customers", http.StatusOK},
		{http.MethodGet, "/api/v1/customers/nope", http.StatusNotFound},
		{http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != tt.status {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, rec.Code, tt.status)
		}
	}
}

func TestRouterAppliesMiddlewareInOrder(t *testing.T) {
	t.Parallel()

	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	router := newTestRouter(t, tag("outer"), tag("inner"))

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("middleware order = %v, want [outer inner]", order)
	}
}
