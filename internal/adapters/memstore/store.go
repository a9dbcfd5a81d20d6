// Package memstore provides an in-memory storage adapter implementing the
// store port with full criteria evaluation, optimistic locking, free-text
// search, and cursor positioning. It backs local development and tests, and
// serves as the reference for the operator semantics a database-backed
// adapter must reproduce in its query translation.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/openfabrik/datakit/internal/apperr"
	"github.com/openfabrik/datakit/internal/domain"
	"github.com/openfabrik/datakit/internal/domain/filter"
	"github.com/openfabrik/datakit/internal/ports"
)

// FieldFunc resolves a criteria field name to a value on the entity. The
// boolean reports whether the field is known. Envelope fields and metadata
// keys are resolved by the store itself; a FieldFunc supplies the entity's
// own payload fields.
type FieldFunc[T domain.Record] func(entity T, field string) (any, bool)

// TextFunc extracts the haystack for free-text search from an entity.
type TextFunc[T domain.Record] func(entity T) string

// Option configures a Store at construction.
type Option[T domain.Record] func(*Store[T])

// WithFieldFunc registers the resolver for payload fields referenced in
// criteria. Without it only envelope fields and metadata keys filter.
func WithFieldFunc[T domain.Record](fn FieldFunc[T]) Option[T] {
	return func(s *Store[T]) { s.fields = fn }
}

// WithTextFunc registers the haystack extractor for Search. Without it only
// an empty search text matches.
func WithTextFunc[T domain.Record](fn TextFunc[T]) Option[T] {
	return func(s *Store[T]) { s.text = fn }
}

// WithOptimisticLocking toggles the version compare-and-swap on Update.
// Enabled by default; when on, Update expects the incoming version to be
// exactly one ahead of the stored version.
func WithOptimisticLocking[T domain.Record](enabled bool) Option[T] {
	return func(s *Store[T]) { s.locking = enabled }
}

// Store is a thread-safe in-memory store for one entity type. Writes and
// reads work on snapshots taken with the copy function, so callers never
// share mutable state with the store.
type Store[T domain.Record] struct {
	name    string
	copy    func(T) T
	fields  FieldFunc[T]
	text    TextFunc[T]
	locking bool

	mu       sync.RWMutex
	entities map[domain.EntityID]T
}

// New creates an empty store. The name appears in not-found errors and
// health reporting; copyFn must return an independent deep copy of an entity.
func New[T domain.Record](name string, copyFn func(T) T, opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		name:     name,
		copy:     copyFn,
		locking:  true,
		entities: make(map[domain.EntityID]T),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.Store[domain.Record] = (*Store[domain.Record])(nil)

// Create persists a snapshot of the entity. An entity with the same id must
// not already exist.
func (s *Store[T]) Create(_ context.Context, entity T) (T, error) {
	id := entity.Envelope().ID

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entities[id]; exists {
		var zero T
		return zero, apperr.NewConflict("entity already exists", "duplicate_id", id.String())
	}

	s.entities[id] = s.copy(entity)
	return entity, nil
}

// FindByID returns a snapshot of the entity with the given id. Soft-deleted
// entities are returned; visibility policy is the repository's concern.
func (s *Store[T]) FindByID(_ context.Context, id domain.EntityID) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.entities[id]
	if !ok {
		var zero T
		return zero, apperr.NewNotFound(s.name, id)
	}
	return s.copy(stored), nil
}

// FindMany returns snapshots of all entities matching the query's criteria,
// ordered by its sort fields and windowed by offset and limit.
func (s *Store[T]) FindMany(_ context.Context, q ports.Query) ([]T, error) {
	matched, err := s.match(q.Criteria)
	if err != nil {
		return nil, err
	}
	s.sortEntities(matched, q.Sort)

	return window(matched, q.Offset, q.Limit), nil
}

// Update replaces the stored entity with a snapshot of the given one. Under
// optimistic locking the incoming version must be exactly one ahead of the
// stored version; a mismatch means another writer got there first.
func (s *Store[T]) Update(_ context.Context, entity T) (T, error) {
	id := entity.Envelope().ID

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.entities[id]
	if !ok {
		var zero T
		return zero, apperr.NewNotFound(s.name, id)
	}

	if s.locking {
		expected := entity.Envelope().Version - 1
		actual := stored.Envelope().Version
		if expected != actual {
			var zero T
			return zero, apperr.NewConcurrency(expected, actual)
		}
	}

	s.entities[id] = s.copy(entity)
	return entity, nil
}

// Delete physically removes the entity with the given id.
func (s *Store[T]) Delete(_ context.Context, id domain.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[id]; !ok {
		return apperr.NewNotFound(s.name, id)
	}
	delete(s.entities, id)
	return nil
}

// Count returns the number of entities matching the criteria.
func (s *Store[T]) Count(_ context.Context, criteria filter.Criteria) (int64, error) {
	matched, err := s.match(criteria)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// Search returns entities matching both the criteria and the free text,
// ordered and positioned after the cursor. The caller controls the limit;
// over-fetching for pagination is the repository's concern.
func (s *Store[T]) Search(_ context.Context, q ports.SearchQuery) ([]T, error) {
	matched, err := s.match(q.Criteria)
	if err != nil {
		return nil, err
	}

	if q.Text != "" {
		needle := strings.ToLower(q.Text)
		kept := matched[:0]
		for _, entity := range matched {
			if s.text != nil && strings.Contains(strings.ToLower(s.text(entity)), needle) {
				kept = append(kept, entity)
			}
		}
		matched = kept
	}

	s.sortEntities(matched, q.Sort)
	matched = afterCursor(matched, q.Cursor)

	return window(matched, 0, q.Limit), nil
}

// Name returns the store identifier for health reporting.
func (s *Store[T]) Name() string { return s.name }

// HealthCheck always reports healthy; the in-memory store has no failure mode.
func (s *Store[T]) HealthCheck(_ context.Context) error { return nil }

// Len returns the number of stored entities including soft-deleted ones.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// match snapshots every entity satisfying the criteria tree.
func (s *Store[T]) match(criteria filter.Criteria) ([]T, error) {
	if err := criteria.Validate(); err != nil {
		return nil, apperr.NewValidation(err.Error(), nil)
	}

	node := criteria.AST()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []T
	for _, entity := range s.entities {
		ok, err := s.evaluate(node, entity)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, s.copy(entity))
		}
	}
	return matched, nil
}

// sortEntities orders entities by the sort fields, falling back to id order
// for a deterministic result.
func (s *Store[T]) sortEntities(entities []T, fields []ports.SortField) {
	sort.SliceStable(entities, func(i, j int) bool {
		for _, f := range fields {
			vi, iok := s.fieldValue(entities[i], f.Field)
			vj, jok := s.fieldValue(entities[j], f.Field)
			if !iok || !jok {
				continue
			}
			c := compareValues(vi, vj)
			if c == 0 {
				continue
			}
			if f.Desc {
				return c > 0
			}
			return c < 0
		}
		return entities[i].Envelope().ID < entities[j].Envelope().ID
	})
}

// window applies offset/limit to an ordered slice. A zero limit means no
// cap; a negative offset is treated as zero.
func window[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// afterCursor drops everything up to and including the entity the cursor
// names. An empty or unknown cursor leaves the slice untouched.
func afterCursor[T domain.Record](items []T, cursor string) []T {
	if cursor == "" {
		return items
	}
	for i, entity := range items {
		if entity.Envelope().ID.String() == cursor {
			return items[i+1:]
		}
	}
	return items
}
