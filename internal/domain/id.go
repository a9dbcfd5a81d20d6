package domain

import "github.com/google/uuid"

// EntityID identifies a persisted entity. It is opaque: callers must not
// parse or derive meaning from its contents.
type EntityID string

// UserID identifies an actor (human or system) referenced in audit fields.
type UserID string

// TenantID identifies a tenant for multi-tenant deployments.
type TenantID string

// TraceID correlates an operation with its log records and error responses.
type TraceID string

// NewEntityID returns a random, collision-resistant EntityID.
func NewEntityID() EntityID {
	return EntityID(uuid.NewString())
}

// NewTraceID returns a fresh correlation identifier.
func NewTraceID() TraceID {
	return TraceID(uuid.NewString())
}

// IsZero reports whether the id is unset.
func (id EntityID) IsZero() bool { return id == "" }

func (id EntityID) String() string { return string(id) }

func (id UserID) String() string { return string(id) }

func (id TenantID) String() string { return string(id) }

func (id TraceID) String() string { return string(id) }

// IsZero reports whether the trace id is unset.
func (id TraceID) IsZero() bool { return id == "" }
