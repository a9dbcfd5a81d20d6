package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openfabrik/datakit/internal/adapters/http/dto"
)

// successEnvelope mirrors the success response shape for decoding in tests.
type successEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeSuccess(t *testing.T, rec *httptest.ResponseRecorder, data any) {
	t.Helper()
	var env successEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !env.Success {
		t.Fatalf("success = false, body = %s", env.Data)
	}
	if data != nil {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("failed to decode data payload: %v", err)
		}
	}
}

func TestCreateCustomer(t *testing.T) {
	t.Parallel()

	handler, _ := newCustomerStack(t)

	body := jsonBody(t, dto.CreateCustomerRequest{Name: "Acme Corp", Email: "ops@acme.test", Tier: "gold"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", body)

	handler.CreateCustomer(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body)
	}

	var got dto.CustomerResponse
	decodeSuccess(t, rec, &got)
	if got.ID == "" {
		t.Error("ID empty, want generated id")
	}
	if got.Version != 1 {
		t.Errorf("Version = %d, want 1", got.Version)
	}
	if got.Tier != "gold" {
		t.Errorf("Tier = %q, want gold", got.Tier)
	}
}

func TestCreateCustomer_InvalidPayload(t *testing.T) {
	t.Parallel()

	handler, _ := newCustomerStack(t)

	body := jsonBody(t, dto.CreateCustomerRequest{Name: "Acme Corp"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", body)

	handler.CreateCustomer(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreateCustomer_MalformedJSON(t *testing.T) {
	t.Parallel()

	handler, _ := newCustomerStack(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", strings.NewReader("{not json"))

	handler.CreateCustomer(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetCustomer(t *testing.T) {
	t.Parallel()

	handler, service := newCustomerStack(t)
	id := seedCustomer(t, service, "Acme Corp", "ops@acme.test")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/"+id, http.NoBody)
	req = withChiParams(req, map[string]string{"id": id})

	handler.GetCustomer(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}

	var got dto.CustomerResponse
	decodeSuccess(t, rec, &got)
	if got.ID != id || got.Name != "Acme Corp" {
		t.Errorf("customer = %+v, want seeded customer", got)
	}
}

func TestGetCustomer_NotFound(t *testing.T) {
	t.Parallel()

	handler, _ := newCustomerStack(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/missing", http.NoBody)
	req = withChiParams(req, map[string]string{"id": "missing"})

	handler.GetCustomer(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHeadCustomer(t *testing.T) {
	t.Parallel()

	handler, service := newCustomerStack(t)
	id := seedCustomer(t, service, "Acme Corp", "ops@acme.test")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodHead, "/api/v1/customers/"+id, http.NoBody)
	req = withChiParams(req, map[string]string{"id": id})
	handler.HeadCustomer(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodHead, "/api/v1/customers/ghost", http.NoBody)
	req = withChiParams(req, map[string]string{"id": "ghost"})
	handler.HeadCustomer(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestUpdateCustomer(t *testing.T) {
	t.Parallel()

	handler, service := newCustomerStack(t)
	id := seedCustomer(t, service, "Acme Corp", "ops@acme.test")

	name := "Acme Holdings"
	body := jsonBody(t, dto.UpdateCustomerRequest{Name: &name})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/customers/"+id, body)
	req = withChiParams(req, map[string]string{"id": id})

	handler.UpdateCustomer(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}

	var got dto.CustomerResponse
	decodeSuccess(t, rec, &got)
	if got.Name != "Acme Holdings" {
		t.Errorf("Name = %q, want updated name", got.Name)
	}
	if got.Version != 2 {
		t.Errorf("Version = %d, want 2 after update", got.Version)
	}
}

func TestUpdateCustomer_StaleVersionConflicts(t *testing.T) {
	t.Parallel()

	handler, service := newCustomerStack(t)
	id := seedCustomer(t, service, "Acme Corp", "ops@acme.test")

	// Bump the stored version past the caller's assertion.
	name := "First Update"
	body := jsonBody(t, dto.UpdateCustomerRequest{Name: &name})
	rec := httptest.NewRecorder()
	req := withChiParams(httptest.NewRequest(http.MethodPatch, "/api/v1/customers/"+id, body),
		map[string]string{"id": id})
	handler.UpdateCustomer(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("setup update failed: %d %s", rec.Code, rec.Body)
	}

	stale := int64(1)
	name2 := "Second Update"
	body = jsonBody(t, dto.UpdateCustomerRequest{Name: &name2, Version: &stale})
	rec = httptest.NewRecorder()
	req = withChiParams(httptest.NewRequest(http.MethodPatch, "/api/v1/customers/"+id, body),
		map[string]string{"id": id})

	handler.UpdateCustomer(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestDeleteCustomer_SoftThenRestore(t *testing.T) {
	t.Parallel()

	handler, service := newCustomerStack(t)
	id := seedCustomer(t, service, "Acme Corp", "ops@acme.test")

	rec := httptest.NewRecorder()
	req := withChiParams(httptest.NewRequest(http.MethodDelete, "/api/v1/customers/"+id, http.NoBody),
		map[string]string{"id": id})
	handler.DeleteCustomer(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	// Deleted customers are invisible to reads.
	rec = httptest.NewRecorder()
	req = withChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/customers/"+id, http.NoBody),
		map[string]string{"id": id})
	handler.GetCustomer(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = httptest.NewRecorder()
	req = withChiParams(httptest.NewRequest(http.MethodPost, "/api/v1/customers/"+id+"/restore", http.NoBody),
		map[string]string{"id": id})
	handler.RestoreCustomer(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("restore status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}

	var got dto.CustomerResponse
	decodeSuccess(t, rec, &got)
	if got.DeletedAt != "" {
		t.Errorf("DeletedAt = %q, want empty after restore", got.DeletedAt)
	}
}

func TestDeleteCustomer_Permanent(t *testing.T) {
	t.Parallel()

	handler, service := newCustomerStack(t)
	id := seedCustomer(t, service, "Acme Corp", "ops@acme.test")

	rec := httptest.NewRecorder()
	req := withChiParams(
		httptest.NewRequest(http.MethodDelete, "/api/v1/customers/"+id+"?permanent=true", http.NoBody),
		map[string]string{"id": id})
	handler.DeleteCustomer(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	// A permanent delete cannot be restored.
	rec = httptest.NewRecorder()
	req = withChiParams(httptest.NewRequest(http.MethodPost, "/api/v1/customers/"+id+"/restore", http.NoBody),
		map[string]string{"id": id})
	handler.RestoreCustomer(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("restore after hard delete = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestListCustomers(t *testing.T) {
	t.Parallel()

	handler, service := newCustomerStack(t)
	seedCustomer(t, service, "Acme Corp", "ops@acme.test")
	seedCustomer(t, service, "Globex", "it@globex.test")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers?limit=10", http.NoBody)

	handler.ListCustomers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}

	var got dto.CustomerPage
	decodeSuccess(t, rec, &got)
	if len(got.Customers) != 2 {
		t.Errorf("customers = %d, want 2", len(got.Customers))
	}
	if got.Pagination.Total != 2 {
		t.Errorf("Total = %d, want 2", got.Pagination.Total)
	}
}

func TestListCustomers_FilterByEmail(t *testing.T) {
	t.Parallel()

	handler, service := newCustomerStack(t)
	seedCustomer(t, service, "Acme Corp", "ops@acme.test")
	seedCustomer(t, service, "Globex", "it@globex.test")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers?email=it@globex.test", http.NoBody)

	handler.ListCustomers(rec, req)

	var got dto.CustomerPage
	decodeSuccess(t, rec, &got)
	if len(got.Customers) != 1 || got.Customers[0].Name != "Globex" {
		t.Errorf("customers = %+v, want only Globex", got.Customers)
	}
}

func TestSearchCustomers(t *testing.T) {
	t.Parallel()

	handler, service := newCustomerStack(t)
	seedCustomer(t, service, "Acme Corp", "ops@acme.test")
	seedCustomer(t, service, "Globex", "it@globex.test")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/search?q=acme", http.NoBody)

	handler.SearchCustomers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}

	var got dto.CustomerSearchPage
	decodeSuccess(t, rec, &got)
	if len(got.Customers) != 1 || got.Customers[0].Name != "Acme Corp" {
		t.Errorf("customers = %+v, want only Acme Corp", got.Customers)
	}
	if got.HasMore {
		t.Error("HasMore = true, want false for exhausted result")
	}
}

func TestSearchCustomers_MissingQuery(t *testing.T) {
	t.Parallel()

	handler, _ := newCustomerStack(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/search", http.NoBody)

	handler.SearchCustomers(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestBulkUpdateCustomers(t *testing.T) {
	t.Parallel()

	handler, service := newCustomerStack(t)
	id := seedCustomer(t, service, "Acme Corp", "ops@acme.test")

	tier := "platinum"
	body := jsonBody(t, dto.BulkUpdateRequest{Customers: []dto.BulkUpdateItem{
		{ID: id, UpdateCustomerRequest: dto.UpdateCustomerRequest{Tier: &tier}},
		{ID: "ghost", UpdateCustomerRequest: dto.UpdateCustomerRequest{Tier: &tier}},
	}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/customers", body)

	handler.BulkUpdateCustomers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}

	var got dto.BulkUpdateResponse
	decodeSuccess(t, rec, &got)
	if got.Total != 2 || got.Succeeded != 1 || got.Failed != 1 {
		t.Fatalf("counters = %+v, want total 2 succeeded 1 failed 1", got)
	}
	if got.Updated[0].Tier != "platinum" {
		t.Errorf("Tier = %q, want platinum", got.Updated[0].Tier)
	}
	if got.Errors[0].CustomerID != "ghost" {
		t.Errorf("failed id = %q, want ghost", got.Errors[0].CustomerID)
	}
}

func TestBulkUpdateCustomers_EmptyBatch(t *testing.T) {
	t.Parallel()

	handler, _ := newCustomerStack(t)

	body := jsonBody(t, dto.BulkUpdateRequest{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/customers", body)

	handler.BulkUpdateCustomers(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
