package repository

import "time"

// defaultCacheTTL is the cache lifetime advertised to caching decorators.
const defaultCacheTTL = 5 * time.Minute

// Config holds the consistency policy switches a repository enforces. All
// fields default via DefaultConfig and are overridable at construction.
//
// Only SoftDelete changes the repository's own control flow. The remaining
// switches declare policy for collaborators: OptimisticLocking signals that
// the store must compare-and-swap on version during Update, TenantIsolation
// that the store must scope queries to the context tenant, and Caching/
// CacheTTL are hook points for a caching decorator — no cache is implemented
// here.
type Config struct {
	SoftDelete        bool
	Timestamps        bool
	AuditTrail        bool
	TenantIsolation   bool
	OptimisticLocking bool
	Caching           bool
	CacheTTL          time.Duration
}

// DefaultConfig returns the standard policy: soft delete on, timestamp
// maintenance on, audit trail on, optimistic locking expected of the store,
// no tenant isolation, no caching.
func DefaultConfig() Config {
	return Config{
		SoftDelete:        true,
		Timestamps:        true,
		AuditTrail:        true,
		TenantIsolation:   false,
		OptimisticLocking: true,
		Caching:           false,
		CacheTTL:          defaultCacheTTL,
	}
}
