// Package repository provides the policy-enforcing persistence façade. It
// wraps a storage adapter's seven primitives with uniform consistency policy:
// soft-delete visibility injected into every read path, audit envelope
// maintenance, id assignment, interceptor observation around every operation,
// and pagination assembly. Storage I/O, predicate translation, and the
// optimistic-locking compare-and-swap stay with the store collaborator;
// failures surface to the caller unchanged and are never retried here.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/openfabrik/datakit/internal/apperr"
	"github.com/openfabrik/datakit/internal/domain"
	"github.com/openfabrik/datakit/internal/domain/filter"
	"github.com/openfabrik/datakit/internal/domain/page"
	"github.com/openfabrik/datakit/internal/ports"
)

// deletedAtField is the envelope field storage adapters expose for the
// soft-delete marker.
const deletedAtField = "deletedAt"

// notDeleted is the condition injected into read paths when the soft-delete
// policy is active.
func notDeleted() filter.Condition {
	return filter.Condition{Field: deletedAtField, Operator: filter.OpIsNull}
}

// ListOptions selects a filtered, sorted, offset-paginated window.
type ListOptions struct {
	Criteria filter.Criteria
	Page     page.Options
	Sort     []ports.SortField
}

// SearchOptions selects a filtered, cursor-paginated free-text window.
type SearchOptions struct {
	Text     string
	Criteria filter.Criteria
	Sort     []ports.SortField
	Cursor   string
	Limit    int
}

// ReadOption adjusts visibility for a single read operation.
type ReadOption func(*readSettings)

type readSettings struct {
	withDeleted bool
}

// WithDeleted opts a read into seeing soft-deleted entities. Without it,
// reads behave as if deleted entities do not exist.
func WithDeleted() ReadOption {
	return func(s *readSettings) { s.withDeleted = true }
}

// Option configures a Repository at construction.
type Option[T domain.Record] func(*Repository[T])

// WithInterceptors appends interceptors to the ordered observation chain.
func WithInterceptors[T domain.Record](interceptors ...Interceptor) Option[T] {
	return func(r *Repository[T]) {
		r.interceptors = append(r.interceptors, interceptors...)
	}
}

// WithIDGenerator overrides how ids are assigned before creation.
func WithIDGenerator[T domain.Record](gen ports.IDGenerator) Option[T] {
	return func(r *Repository[T]) { r.idgen = gen }
}

// WithCursorFunc overrides how search cursors are derived from entities.
// The default cursor is the entity id.
func WithCursorFunc[T domain.Record](fn page.CursorFunc[T]) Option[T] {
	return func(r *Repository[T]) { r.cursor = fn }
}

// Repository enforces consistency policy around a Store's primitives for one
// entity type. Concurrent calls against the same instance are independent;
// the repository holds no mutable state after construction.
type Repository[T domain.Record] struct {
	entity       string
	store        ports.Store[T]
	cfg          Config
	logger       *slog.Logger
	interceptors []Interceptor
	idgen        ports.IDGenerator
	cursor       page.CursorFunc[T]
}

// New creates a repository for the named entity type over the given store.
// The entity name appears in not-found errors and audit records.
func New[T domain.Record](entity string, store ports.Store[T], cfg Config, logger *slog.Logger, opts ...Option[T]) *Repository[T] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := &Repository[T]{
		entity: entity,
		store:  store,
		cfg:    cfg,
		logger: logger,
		idgen:  func() domain.EntityID { return domain.NewEntityID() },
		cursor: func(t T) string { return t.Envelope().ID.String() },
	}
	if cfg.AuditTrail {
		r.interceptors = append(r.interceptors, NewAuditInterceptor(entity, logger))
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the repository's policy configuration.
func (r *Repository[T]) Config() Config { return r.cfg }

// Entity returns the entity type name the repository was built for.
func (r *Repository[T]) Entity() string { return r.entity }

// Create assigns an id, stamps the audit envelope (version 1, creation
// timestamps, acting user from the context), and persists the entity.
func (r *Repository[T]) Create(ctx context.Context, entity T) (T, error) {
	env := entity.Envelope()
	prior := *env
	id := env.ID
	if id.IsZero() {
		id = r.idgen()
	}
	env.Initialize(id, domain.ActorFrom(ctx))

	var created T
	err := r.run(ctx, OpCreate, entity, func(ctx context.Context) error {
		var err error
		created, err = r.store.Create(ctx, entity)
		return err
	})
	if err != nil {
		// Leave the caller's entity as it was before the failed attempt.
		*env = prior
		var zero T
		return zero, err
	}
	return created, nil
}

// FindByID returns the entity with the given id. Under the soft-delete
// policy a deleted entity is reported as not found unless WithDeleted is
// given; the check runs on the fetched envelope because the primitive
// addresses by id, not by criteria.
func (r *Repository[T]) FindByID(ctx context.Context, id domain.EntityID, opts ...ReadOption) (T, error) {
	settings := newReadSettings(opts)

	var found T
	err := r.run(ctx, OpFindByID, id, func(ctx context.Context) error {
		var err error
		found, err = r.store.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if r.hideDeleted(settings) && found.Envelope().IsDeleted() {
			return apperr.NewNotFound(r.entity, id)
		}
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return found, nil
}

// FindMany returns all entities matching the criteria window. The
// soft-delete condition is injected into the top-level AND of the tree so
// filtering happens in the storage layer, not in memory.
func (r *Repository[T]) FindMany(ctx context.Context, q ports.Query, opts ...ReadOption) ([]T, error) {
	settings := newReadSettings(opts)
	q.Criteria = r.readCriteria(q.Criteria, settings)

	var items []T
	err := r.run(ctx, OpFindMany, q, func(ctx context.Context) error {
		var err error
		items, err = r.store.FindMany(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Update bumps the envelope version and, when timestamp maintenance is
// enabled, refreshes UpdatedAt and the acting user, then persists. The
// version advances on every update regardless of the timestamp policy so
// optimistic locking keeps working; the store performs the version
// compare-and-swap and its concurrency error propagates unchanged.
func (r *Repository[T]) Update(ctx context.Context, entity T) (T, error) {
	env := entity.Envelope()
	if r.cfg.Timestamps {
		env.MarkAsUpdated(domain.ActorFrom(ctx))
	} else {
		env.IncrementVersion()
	}

	var updated T
	err := r.run(ctx, OpUpdate, entity, func(ctx context.Context) error {
		var err error
		updated, err = r.store.Update(ctx, entity)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return updated, nil
}

// Delete removes an entity per policy: a soft delete (marker set, version
// bumped, row retained) when the policy is enabled, otherwise a physical
// delete. Soft-deleting an already-deleted entity reports not found.
func (r *Repository[T]) Delete(ctx context.Context, id domain.EntityID) error {
	if !r.cfg.SoftDelete {
		return r.run(ctx, OpDelete, id, func(ctx context.Context) error {
			return r.store.Delete(ctx, id)
		})
	}

	return r.run(ctx, OpDelete, id, func(ctx context.Context) error {
		entity, err := r.store.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if entity.Envelope().IsDeleted() {
			return apperr.NewNotFound(r.entity, id)
		}
		entity.Envelope().SoftDelete(domain.ActorFrom(ctx))
		_, err = r.store.Update(ctx, entity)
		return err
	})
}

// HardDelete physically removes an entity regardless of the soft-delete
// policy.
func (r *Repository[T]) HardDelete(ctx context.Context, id domain.EntityID) error {
	return r.run(ctx, OpHardDelete, id, func(ctx context.Context) error {
		return r.store.Delete(ctx, id)
	})
}

// Restore clears an entity's soft-delete marker and bumps its version.
// Restoring is always legal; restoring an active entity is a no-op refresh.
func (r *Repository[T]) Restore(ctx context.Context, id domain.EntityID) (T, error) {
	var restored T
	err := r.run(ctx, OpRestore, id, func(ctx context.Context) error {
		entity, err := r.store.FindByID(ctx, id)
		if err != nil {
			return err
		}
		entity.Envelope().Restore(domain.ActorFrom(ctx))
		restored, err = r.store.Update(ctx, entity)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return restored, nil
}

// Count returns the number of entities matching the criteria, subject to
// soft-delete visibility.
func (r *Repository[T]) Count(ctx context.Context, criteria filter.Criteria, opts ...ReadOption) (int64, error) {
	settings := newReadSettings(opts)
	criteria = r.readCriteria(criteria, settings)

	var total int64
	err := r.run(ctx, OpCount, criteria, func(ctx context.Context) error {
		var err error
		total, err = r.store.Count(ctx, criteria)
		return err
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Exists reports whether an entity with the given id is visible.
func (r *Repository[T]) Exists(ctx context.Context, id domain.EntityID, opts ...ReadOption) (bool, error) {
	var exists bool
	err := r.run(ctx, OpExists, id, func(ctx context.Context) error {
		_, err := r.FindByID(ctx, id, opts...)
		switch {
		case err == nil:
			exists = true
			return nil
		case apperr.IsNotFound(err):
			exists = false
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

// List returns one offset-paginated page of entities matching the options.
// The find and count queries are independent, so they run concurrently; the
// page metadata is assembled from the combined results.
func (r *Repository[T]) List(ctx context.Context, opts ListOptions, ropts ...ReadOption) (page.Result[T], error) {
	popts := opts.Page.Normalize()
	if err := popts.Validate(); err != nil {
		return page.Result[T]{}, apperr.NewValidation(err.Error(), nil)
	}

	settings := newReadSettings(ropts)
	criteria := r.readCriteria(opts.Criteria, settings)

	var result page.Result[T]
	err := r.run(ctx, OpList, opts, func(ctx context.Context) error {
		q := ports.Query{
			Criteria: criteria,
			Sort:     opts.Sort,
			Offset:   popts.Offset(),
			Limit:    popts.Limit,
		}

		var (
			wg       sync.WaitGroup
			items    []T
			total    int64
			findErr  error
			countErr error
		)

		wg.Add(2)
		go func() {
			defer wg.Done()
			items, findErr = r.store.FindMany(ctx, q)
		}()
		go func() {
			defer wg.Done()
			total, countErr = r.store.Count(ctx, criteria)
		}()
		wg.Wait()

		if findErr != nil {
			return fmt.Errorf("listing %s: %w", r.entity, findErr)
		}
		if countErr != nil {
			return fmt.Errorf("counting %s: %w", r.entity, countErr)
		}

		result = page.NewResult(items, total, popts)
		return nil
	})
	if err != nil {
		return page.Result[T]{}, err
	}
	return result, nil
}

// Search returns one cursor-paginated window of entities matching the free
// text and criteria. It over-fetches by one to detect a further page without
// a count query; the next cursor is derived from the last retained entity.
func (r *Repository[T]) Search(ctx context.Context, opts SearchOptions, ropts ...ReadOption) (page.CursorResult[T], error) {
	limit := opts.Limit
	if limit == 0 {
		limit = page.DefaultLimit
	}
	if err := (page.Options{Page: 1, Limit: limit}).Validate(); err != nil {
		return page.CursorResult[T]{}, apperr.NewValidation(err.Error(), nil)
	}

	settings := newReadSettings(ropts)
	criteria := r.readCriteria(opts.Criteria, settings)

	var result page.CursorResult[T]
	err := r.run(ctx, OpSearch, opts, func(ctx context.Context) error {
		candidates, err := r.store.Search(ctx, ports.SearchQuery{
			Text:     opts.Text,
			Criteria: criteria,
			Sort:     opts.Sort,
			Cursor:   opts.Cursor,
			Limit:    limit + 1,
		})
		if err != nil {
			return err
		}
		result = page.NewCursorResult(candidates, limit, r.cursor)
		return nil
	})
	if err != nil {
		return page.CursorResult[T]{}, err
	}
	return result, nil
}

// readCriteria applies soft-delete visibility to a criteria tree.
func (r *Repository[T]) readCriteria(criteria filter.Criteria, settings readSettings) filter.Criteria {
	if !r.hideDeleted(settings) {
		return criteria
	}
	return criteria.WithCondition(notDeleted())
}

func (r *Repository[T]) hideDeleted(settings readSettings) bool {
	return r.cfg.SoftDelete && !settings.withDeleted
}

func newReadSettings(opts []ReadOption) readSettings {
	var s readSettings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// run executes fn inside the uniform operation shape: every interceptor's
// Before, the operation itself, then After on success or OnError on failure.
// Failures are re-raised unchanged — interceptors observe, never swallow.
func (r *Repository[T]) run(ctx context.Context, op Operation, subject any, fn func(context.Context) error) error {
	for _, ic := range r.interceptors {
		if err := ic.Before(ctx, op, subject); err != nil {
			r.notifyError(ctx, op, err)
			return err
		}
	}

	if err := fn(ctx); err != nil {
		r.notifyError(ctx, op, err)
		return err
	}

	for _, ic := range r.interceptors {
		ic.After(ctx, op, subject)
	}
	return nil
}

func (r *Repository[T]) notifyError(ctx context.Context, op Operation, err error) {
	for _, ic := range r.interceptors {
		ic.OnError(ctx, op, err)
	}
	r.logger.ErrorContext(ctx, "repository operation failed",
		slog.String("entity", r.entity),
		slog.String("operation", string(op)),
		slog.Any("error", err),
	)
}
