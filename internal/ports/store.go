package ports

import (
	"context"

	"github.com/openfabrik/datakit/internal/domain"
	"github.com/openfabrik/datakit/internal/domain/filter"
)

// SortField orders a result set by one field.
type SortField struct {
	Field string
	Desc  bool
}

// Query selects a window of records matching a criteria tree.
type Query struct {
	Criteria filter.Criteria
	Sort     []SortField
	Offset   int
	Limit    int
}

// SearchQuery selects a cursor-addressed window of records matching free
// text plus a criteria tree. Limit includes any over-fetch the caller applies
// for cursor derivation.
type SearchQuery struct {
	Text     string
	Criteria filter.Criteria
	Sort     []SortField
	Cursor   string
	Limit    int
}

// IDGenerator supplies identifiers for entities about to be created. The
// repository assigns the id before delegating to the store.
type IDGenerator func() domain.EntityID

// Store is the outbound port every storage adapter must implement: the seven
// persistence primitives the repository builds its policy on. Implementations
// translate the filter criteria tree into native predicates with matching
// operator semantics — the repository never filters result sets in memory.
//
// Error contract: lookups of absent ids return a not-found error from the
// apperr taxonomy. When the repository's optimistic-locking policy is
// enabled, Update must perform the compare-and-swap on the entity version
// (conditional write failing when the stored version differs from the
// incoming entity's pre-bump version) and return a concurrency error on
// mismatch; the core propagates it unchanged and never retries.
type Store[T domain.Record] interface {
	// Create persists a new entity and returns the stored representation.
	Create(ctx context.Context, entity T) (T, error)

	// FindByID returns the entity with the given id regardless of its
	// soft-delete state; the repository applies deletion visibility.
	FindByID(ctx context.Context, id domain.EntityID) (T, error)

	// FindMany returns the window of entities matching the query, in the
	// requested sort order.
	FindMany(ctx context.Context, q Query) ([]T, error)

	// Update overwrites an existing entity and returns the stored
	// representation. See the interface comment for the version contract.
	Update(ctx context.Context, entity T) (T, error)

	// Delete physically removes an entity. Soft deletion never reaches this
	// primitive; it flows through Update.
	Delete(ctx context.Context, id domain.EntityID) error

	// Count returns the number of entities matching the criteria.
	Count(ctx context.Context, criteria filter.Criteria) (int64, error)

	// Search returns entities matching the free-text query and criteria,
	// starting after the cursor position when one is given.
	Search(ctx context.Context, q SearchQuery) ([]T, error)
}
