package domain

// Record is the capability set a concrete entity type must satisfy to flow
// through the repository and service layers. Entities embed Entity and expose
// it via Envelope; Validate checks type-specific invariants on top of the
// audit envelope the base enforces.
//
// Record is implemented by pointer types so that envelope mutations
// (soft delete, version bumps) act on the stored value.
type Record interface {
	// Envelope returns the entity's audit/version envelope for in-place
	// mutation by the persistence layers.
	Envelope() *Entity

	// Validate reports type-specific invariant violations. Implementations
	// return a validation error from the apperr taxonomy (or any error,
	// which callers coerce) when the entity is not persistable.
	Validate() error
}
