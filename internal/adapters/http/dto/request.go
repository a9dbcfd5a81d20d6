package dto

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/openfabrik/datakit/internal/apperr"
	"github.com/openfabrik/datakit/internal/domain/customer"
	"github.com/openfabrik/datakit/internal/domain/filter"
	"github.com/openfabrik/datakit/internal/domain/page"
	"github.com/openfabrik/datakit/internal/ports"
	"github.com/openfabrik/datakit/internal/repository"
)

const (
	msgRequired     = "is required"
	msgMustNotEmpty = "must not be empty"
)

// CreateCustomerRequest represents the JSON body for creating a customer.
type CreateCustomerRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status,omitempty"`
	Tier   string `json:"tier,omitempty"`
}

// Validate checks that required fields are present. Full business validation
// runs in the service layer; this catches structurally unusable requests.
func (r *CreateCustomerRequest) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(r.Name) == "" {
		fields["name"] = msgRequired
	}
	if strings.TrimSpace(r.Email) == "" {
		fields["email"] = msgRequired
	}

	if len(fields) > 0 {
		return apperr.NewValidation("invalid customer payload", fields)
	}
	return nil
}

// ToCustomer converts the request to a domain customer.
func (r *CreateCustomerRequest) ToCustomer() *customer.Customer {
	c := customer.New(r.Name, r.Email)
	if r.Status != "" {
		c.Status = customer.Status(r.Status)
	}
	c.Tier = r.Tier
	return c
}

// UpdateCustomerRequest represents the JSON body for updating a customer.
// All payload fields are optional; nil means "do not change this field".
// Version, when provided, asserts the expected current version so that
// concurrent modifications are detected and rejected.
type UpdateCustomerRequest struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Status  *string `json:"status,omitempty"`
	Tier    *string `json:"tier,omitempty"`
	Version *int64  `json:"version,omitempty"`
}

// Validate checks that any provided fields have usable values.
func (r *UpdateCustomerRequest) Validate() error {
	fields := make(map[string]string)

	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		fields["name"] = msgMustNotEmpty
	}
	if r.Email != nil && strings.TrimSpace(*r.Email) == "" {
		fields["email"] = msgMustNotEmpty
	}
	if r.Version != nil && *r.Version < 1 {
		fields["version"] = "must be a positive integer"
	}

	if len(fields) > 0 {
		return apperr.NewValidation("invalid customer payload", fields)
	}
	return nil
}

// Apply copies the provided fields onto an existing customer. The version
// assertion, when present, overwrites the fetched version so the storage
// layer compares against the caller's expectation.
func (r *UpdateCustomerRequest) Apply(c *customer.Customer) {
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Email != nil {
		c.Email = *r.Email
	}
	if r.Status != nil {
		c.Status = customer.Status(*r.Status)
	}
	if r.Tier != nil {
		c.Tier = *r.Tier
	}
	if r.Version != nil {
		c.Entity.Version = *r.Version
	}
}

// BulkUpdateRequest represents the JSON body for updating a batch of
// customers in one call.
type BulkUpdateRequest struct {
	Customers []BulkUpdateItem `json:"customers"`
}

// BulkUpdateItem is one customer update within a bulk request.
type BulkUpdateItem struct {
	ID string `json:"id"`
	UpdateCustomerRequest
}

// Validate checks the batch and each item.
func (r *BulkUpdateRequest) Validate() error {
	if len(r.Customers) == 0 {
		return apperr.NewValidation("invalid bulk payload",
			map[string]string{"customers": msgMustNotEmpty})
	}

	fields := make(map[string]string)
	for i, item := range r.Customers {
		prefix := "customers[" + strconv.Itoa(i) + "]"
		if strings.TrimSpace(item.ID) == "" {
			fields[prefix+".id"] = msgRequired
		}
		if err := item.UpdateCustomerRequest.Validate(); err != nil {
			fields[prefix] = apperr.Coerce(err).Message()
		}
	}

	if len(fields) > 0 {
		return apperr.NewValidation("invalid bulk payload", fields)
	}
	return nil
}

// ParseListOptions builds list options from query parameters. Recognized
// parameters: page, limit, status, tier, email, sort. The sort parameter is a
// comma-separated field list where a leading "-" selects descending order.
func ParseListOptions(r *http.Request) (repository.ListOptions, error) {
	q := r.URL.Query()

	opts := repository.ListOptions{
		Criteria: listCriteria(q.Get("status"), q.Get("tier"), q.Get("email")),
		Sort:     parseSort(q.Get("sort")),
	}

	var err error
	if opts.Page.Page, err = parseIntParam(q.Get("page"), "page"); err != nil {
		return repository.ListOptions{}, err
	}
	if opts.Page.Limit, err = parseIntParam(q.Get("limit"), "limit"); err != nil {
		return repository.ListOptions{}, err
	}
	return opts, nil
}

// ParseSearchOptions builds search options from query parameters. Recognized
// parameters: q, cursor, limit, status, tier, sort.
func ParseSearchOptions(r *http.Request) (repository.SearchOptions, error) {
	q := r.URL.Query()

	text := strings.TrimSpace(q.Get("q"))
	if text == "" {
		return repository.SearchOptions{}, apperr.NewValidation("invalid search query",
			map[string]string{"q": msgRequired})
	}

	limit, err := parseIntParam(q.Get("limit"), "limit")
	if err != nil {
		return repository.SearchOptions{}, err
	}
	if limit == 0 {
		limit = page.DefaultLimit
	}

	return repository.SearchOptions{
		Text:     text,
		Criteria: listCriteria(q.Get("status"), q.Get("tier"), ""),
		Sort:     parseSort(q.Get("sort")),
		Cursor:   q.Get("cursor"),
		Limit:    limit,
	}, nil
}

// listCriteria builds equality criteria from the filterable query parameters.
func listCriteria(status, tier, email string) filter.Criteria {
	b := filter.New()
	if status != "" {
		b.Eq("status", status)
	}
	if tier != "" {
		b.Eq("tier", tier)
	}
	if email != "" {
		b.Eq("email", email)
	}
	return b.Build()
}

// parseSort converts "name,-createdAt" into ordered sort fields.
func parseSort(raw string) []ports.SortField {
	if raw == "" {
		return nil
	}

	var sort []ports.SortField
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(field, "-"); ok {
			sort = append(sort, ports.SortField{Field: rest, Desc: true})
			continue
		}
		sort = append(sort, ports.SortField{Field: field})
	}
	return sort
}

func parseIntParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperr.NewValidation("invalid query parameter",
			map[string]string{name: "must be a non-negative integer"})
	}
	return v, nil
}
