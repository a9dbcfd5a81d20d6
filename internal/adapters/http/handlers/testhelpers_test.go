package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/openfabrik/datakit/internal/adapters/http/handlers"
	"github.com/openfabrik/datakit/internal/adapters/memstore"
	"github.com/openfabrik/datakit/internal/app"
	"github.com/openfabrik/datakit/internal/apperr"
	"github.com/openfabrik/datakit/internal/domain/customer"
	"github.com/openfabrik/datakit/internal/repository"
)

// newCustomerStack wires a handler to a real service, repository, and
// in-memory store so tests exercise the full request path.
func newCustomerStack(t *testing.T) (*handlers.CustomerHandler, *app.Service[*customer.Customer]) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	store := memstore.New[*customer.Customer]("customers",
		func(c *customer.Customer) *customer.Customer { return c.Clone() },
		memstore.WithFieldFunc[*customer.Customer](func(c *customer.Customer, name string) (any, bool) {
			return c.Field(name)
		}),
		memstore.WithTextFunc[*customer.Customer](func(c *customer.Customer) string {
			return c.SearchText()
		}),
	)

	repo := repository.New[*customer.Customer]("customer", store, repository.DefaultConfig(), logger)
	service := app.NewService[*customer.Customer](repo, logger)

	return handlers.NewCustomerHandler(service, apperr.NewHandler(logger)), service
}

func withChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("failed to encode JSON body: %v", err)
	}
	return buf
}

// seedCustomer creates a customer through the service and returns its id.
func seedCustomer(t *testing.T, service *app.Service[*customer.Customer], name, email string) string {
	t.Helper()
	created, err := service.Create(context.Background(), customer.New(name, email))
	if err != nil {
		t.Fatalf("failed to seed customer: %v", err)
	}
	return created.Entity.ID.String()
}
