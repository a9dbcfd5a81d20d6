package dto

import (
	"context"
	"time"

	"github.com/openfabrik/datakit/internal/app"
	"github.com/openfabrik/datakit/internal/domain/customer"
	"github.com/openfabrik/datakit/internal/domain/page"
	"github.com/openfabrik/datakit/internal/platform/correlation"
)

// SuccessResponse is the uniform envelope wrapping every successful payload.
type SuccessResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"traceId,omitempty"`
}

// NewSuccess wraps data in the success envelope, stamping the current time
// and the trace id from context when one is present.
func NewSuccess(ctx context.Context, data any, message string) SuccessResponse {
	return SuccessResponse{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: time.Now().UTC(),
		TraceID:   correlation.FromContext(ctx).String(),
	}
}

// CustomerResponse represents a single customer in HTTP responses. Envelope
// fields are flattened alongside the payload.
type CustomerResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Status    string         `json:"status"`
	Tier      string         `json:"tier,omitempty"`
	Version   int64          `json:"version"`
	CreatedAt string         `json:"createdAt"`
	UpdatedAt string         `json:"updatedAt"`
	CreatedBy string         `json:"createdBy,omitempty"`
	UpdatedBy string         `json:"updatedBy,omitempty"`
	DeletedAt string         `json:"deletedAt,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ToCustomerResponse converts a domain customer to its HTTP representation.
func ToCustomerResponse(c *customer.Customer) CustomerResponse {
	env := c.Entity

	resp := CustomerResponse{
		ID:        env.ID.String(),
		Name:      c.Name,
		Email:     c.Email,
		Status:    string(c.Status),
		Tier:      c.Tier,
		Version:   env.Version,
		CreatedAt: env.CreatedAt.Format(time.RFC3339),
		UpdatedAt: env.UpdatedAt.Format(time.RFC3339),
		Metadata:  env.Metadata,
	}
	if env.CreatedBy != nil {
		resp.CreatedBy = env.CreatedBy.String()
	}
	if env.UpdatedBy != nil {
		resp.UpdatedBy = env.UpdatedBy.String()
	}
	if env.DeletedAt != nil {
		resp.DeletedAt = env.DeletedAt.Format(time.RFC3339)
	}
	return resp
}

// CustomerPage is one offset-paginated window of customers.
type CustomerPage struct {
	Customers  []CustomerResponse `json:"customers"`
	Pagination page.Meta          `json:"pagination"`
}

// ToCustomerPage converts a paginated domain result to its HTTP representation.
func ToCustomerPage(result page.Result[*customer.Customer]) CustomerPage {
	items := make([]CustomerResponse, len(result.Data))
	for i, c := range result.Data {
		items[i] = ToCustomerResponse(c)
	}
	return CustomerPage{Customers: items, Pagination: result.Meta}
}

// CustomerSearchPage is one cursor-paginated window of search results.
type CustomerSearchPage struct {
	Customers  []CustomerResponse `json:"customers"`
	HasMore    bool               `json:"hasMore"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

// ToCustomerSearchPage converts a cursor result to its HTTP representation.
func ToCustomerSearchPage(result page.CursorResult[*customer.Customer]) CustomerSearchPage {
	items := make([]CustomerResponse, len(result.Data))
	for i, c := range result.Data {
		items[i] = ToCustomerResponse(c)
	}
	return CustomerSearchPage{
		Customers:  items,
		HasMore:    result.HasMore,
		NextCursor: result.NextCursor,
	}
}

// BulkUpdateResponse reports the per-item outcomes of a bulk update. Items
// succeed or fail independently, so both lists can be non-empty.
type BulkUpdateResponse struct {
	Updated   []CustomerResponse    `json:"updated"`
	Errors    []BulkUpdateErrorItem `json:"errors"`
	Total     int                   `json:"total"`
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
}

// BulkUpdateErrorItem is a single failed item within a bulk update.
type BulkUpdateErrorItem struct {
	CustomerID string `json:"customerId"`
	Message    string `json:"message"`
}

// ToBulkUpdateResponse converts bulk results to their HTTP representation.
// ids carries the submitted customer ids in request order; results preserve
// that order, so failed items can be attributed even when no entity came back.
func ToBulkUpdateResponse(results []app.BulkResult[*customer.Customer], ids []string) BulkUpdateResponse {
	resp := BulkUpdateResponse{
		Updated: []CustomerResponse{},
		Errors:  []BulkUpdateErrorItem{},
		Total:   len(results),
	}

	for i, r := range results {
		if r.Err != nil {
			item := BulkUpdateErrorItem{Message: r.Err.Error()}
			if i < len(ids) {
				item.CustomerID = ids[i]
			}
			resp.Errors = append(resp.Errors, item)
			continue
		}
		resp.Updated = append(resp.Updated, ToCustomerResponse(r.Entity))
	}

	resp.Succeeded = len(resp.Updated)
	resp.Failed = len(resp.Errors)
	return resp
}
