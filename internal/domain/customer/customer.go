// Package customer holds the demo entity the service ships with. It shows
// how a domain type embeds the audit envelope and plugs into the generic
// repository and service layers.
package customer

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/openfabrik/datakit/internal/apperr"
	"github.com/openfabrik/datakit/internal/domain"
)

// Status is the customer lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusClosed    Status = "closed"
)

// IsValid reports whether the status is one of the known lifecycle states.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusClosed:
		return true
	}
	return false
}

// Customer is an account holder. The embedded entity envelope carries
// identity, versioning, and the audit trail.
type Customer struct {
	Entity domain.Entity `json:"entity"`

	Name   string `json:"name"`
	Email  string `json:"email"`
	Status Status `json:"status"`
	Tier   string `json:"tier,omitempty"`
}

// New creates a customer in the active state. The envelope stays zero until
// the repository stamps it on creation.
func New(name, email string) *Customer {
	return &Customer{
		Name:   name,
		Email:  email,
		Status: StatusActive,
	}
}

// Envelope returns the audit envelope, letting Customer satisfy the
// domain.Record interface.
func (c *Customer) Envelope() *domain.Entity { return &c.Entity }

// Validate checks business rules for the customer. It returns a typed
// validation error with per-field details, or nil if all rules pass.
func (c *Customer) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(c.Name) == "" {
		fields["name"] = "is required"
	}
	if strings.TrimSpace(c.Email) == "" {
		fields["email"] = "is required"
	} else if _, err := mail.ParseAddress(c.Email); err != nil {
		fields["email"] = fmt.Sprintf("invalid: %q", c.Email)
	}
	if !c.Status.IsValid() {
		fields["status"] = fmt.Sprintf("invalid: %q", c.Status)
	}

	if len(fields) > 0 {
		return apperr.NewValidation("customer validation failed", fields)
	}
	return nil
}

// Clone returns an independent deep copy, used by the in-memory store to
// snapshot on writes.
func (c *Customer) Clone() *Customer {
	clone := *c
	clone.Entity = c.Entity.Clone()
	return &clone
}

// Field resolves criteria field names to payload values for store adapters.
func (c *Customer) Field(name string) (any, bool) {
	switch name {
	case "name":
		return c.Name, true
	case "email":
		return c.Email, true
	case "status":
		return string(c.Status), true
	case "tier":
		return c.Tier, true
	default:
		return nil, false
	}
}

// SearchText returns the haystack used for free-text search.
func (c *Customer) SearchText() string {
	return c.Name + " " + c.Email
}
