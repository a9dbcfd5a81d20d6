package handlers

import (
	"net/http"

	"github.com/openfabrik/datakit/internal/adapters/http/dto"
	"github.com/openfabrik/datakit/internal/app"
	"github.com/openfabrik/datakit/internal/apperr"
	"github.com/openfabrik/datakit/internal/domain"
	"github.com/openfabrik/datakit/internal/domain/customer"
)

// CustomerHandler handles HTTP requests for customer operations.
type CustomerHandler struct {
	service *app.Service[*customer.Customer]
	errs    *apperr.Handler
}

// NewCustomerHandler creates a CustomerHandler backed by the given service.
func NewCustomerHandler(service *app.Service[*customer.Customer], errs *apperr.Handler) *CustomerHandler {
	return &CustomerHandler{service: service, errs: errs}
}

// CreateCustomer handles POST /api/v1/customers.
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCustomerRequest
	if !decodeAndValidate(w, r, h.errs, &req) {
		return
	}

	created, err := h.service.Create(r.Context(), req.ToCustomer())
	if err != nil {
		dto.WriteError(w, r, h.errs, err)
		return
	}

	writeJSON(w, http.StatusCreated,
		dto.NewSuccess(r.Context(), dto.ToCustomerResponse(created), "customer created"))
}

// GetCustomer handles GET /api/v1/customers/{id}.
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := parseEntityID(r, "id")
	if err != nil {
		dto.WriteError(w, r, h.errs, err)
		return
	}

	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		dto.WriteError(w, r, h.errs, err)
		return
	}

	writeJSON(w, http.StatusOK,
		dto.NewSuccess(r.Context(), dto.ToCustomerResponse(c), ""))
}

// HeadCustomer handles HEAD /api/v1/customers/{id}. It reports existence
// without a body: 204 when present, 404 when absent.
func (h *CustomerHandler) HeadCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := parseEntityID(r, "id")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	exists, err := h.service.Exists(r.Context(), id)
	if err != nil {
		w.WriteHeader(apperr.Coerce(err).StatusCode())
		return
	}
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateCustomer handles PATCH /api/v1/customers/{id}. The current entity is
// fetched, the provided fields are applied, and the result is persisted. A
// version assertion in the body turns concurrent modification into a conflict.
func (h *CustomerHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := parseEntityID(r, "id")
	if err != nil {
		dto.WriteError(w, r, h.errs, err)
		return
	}

	var req dto.UpdateCustomerRequest
	if !decodeAndValidate(w, r, h.errs, &req) {
		return
	}

	current, err := h.service.Get(r.Context(), id)
	if err != nil {
		dto.WriteError(w, r, h.errs, err)
		return
	}

	req.Apply(current)

	updated, err := h.service.Update(r.Context(), current)
	if err != nil {
		dto.WriteError(w, r, h.errs, err)
		return
	}

	writeJSON(w, http.StatusOK,
		dto.NewSuccess(r.Context(), dto.ToCustomerResponse(updated), "customer updated"))
}

// DeleteCustomer handles DELETE /api/v1/customers/{id}. The repository's
// deletion policy decides between soft and physical removal; the permanent
// query parameter forces a physical delete.
func (h *CustomerHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := parseEntityID(r, "id")
	if err != nil {
		dto.WriteError(w, r, h.errs, err)
		return
	}

	if r.URL.Query().Get("permanent") == "true" {
		err = h.service.HardDelete(r.Context(), id)
	} else {
		err = h.service.Delete(r.Context(), id)
	}
	if err != nil {
		dto.WriteError(w, r, h.errs, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RestoreCustomer handles POST /api/v1/customers/{id}/restore.
func (h *CustomerHandler) RestoreCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := parseEntityID(r, "id")
	if err != nil {
		dto.WriteError(w, r, h.errs, err)
		return
	}

	restored, err := h.service.Restore(r.Context(), id)
	if err != nil {
		dto.WriteError(w, r, h.errs, err)
		return
	}

	writeJSON(w, http.StatusOK,
		dto.NewSuccess(r.Context(), dto.ToCustomerResponse(restored), "customer restored"))
}

// ListCustomers handles GET /api/v1/customers.
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	opts, err := dto.ParseListOptions(r)
	if err != nil {
		dto.WriteError(w, r, h.errs, err)
		return
	}

	result, err := h.service.List(r.Context(), opts)
	if err != nil {
		dto.WriteError(w, r, h.errs, err)
		return
	}

	writeJSON(w, http.StatusOK,
		dto.NewSuccess(r.Context(), dto.ToCustomerPage(result), ""))
}

// SearchCustomers handles GET /api/v1/customers/search.
func (h *CustomerHandler) SearchCustomers(w http.ResponseWriter, r *http.Request) {
	opts, err := dto.ParseSearchOptions(r)
	if err != nil {
		dto.WriteError(w, r, h.errs, err)
		return
	}

	result, err := h.service.Search(r.Context(), opts)
	if err != nil {
		dto.WriteError(w, r, h.errs, err)
		return
	}

	writeJSON(w, http.StatusOK,
		dto.NewSuccess(r.Context(), dto.ToCustomerSearchPage(result), ""))
}

// BulkUpdateCustomers handles PATCH /api/v1/customers. Each item is fetched,
// patched, and submitted as one batch; items succeed or fail independently.
func (h *CustomerHandler) BulkUpdateCustomers(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkUpdateRequest
	if !decodeAndValidate(w, r, h.errs, &req) {
		return
	}

	ids := make([]string, len(req.Customers))
	entities := make([]*customer.Customer, 0, len(req.Customers))
	results := make([]app.BulkResult[*customer.Customer], len(req.Customers))
	slots := make([]int, 0, len(req.Customers))

	for i, item := range req.Customers {
		ids[i] = item.ID

		current, err := h.service.Get(r.Context(), domain.EntityID(item.ID))
		if err != nil {
			results[i] = app.BulkResult[*customer.Customer]{Err: err}
			continue
		}
		item.Apply(current)
		entities = append(entities, current)
		slots = append(slots, i)
	}

	if len(entities) > 0 {
		updated, err := h.service.BulkUpdate(r.Context(), entities)
		if err != nil {
			dto.WriteError(w, r, h.errs, err)
			return
		}
		for j, outcome := range updated {
			results[slots[j]] = outcome
		}
	}

	writeJSON(w, http.StatusOK,
		dto.NewSuccess(r.Context(), dto.ToBulkUpdateResponse(results, ids), "bulk update completed"))
}
