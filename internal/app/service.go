// Package app provides application services that orchestrate use cases by
// coordinating between domain logic and the repository layer through port
// interfaces.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openfabrik/datakit/internal/app/fanout"
	"github.com/openfabrik/datakit/internal/apperr"
	"github.com/openfabrik/datakit/internal/domain"
	"github.com/openfabrik/datakit/internal/domain/filter"
	"github.com/openfabrik/datakit/internal/domain/page"
	"github.com/openfabrik/datakit/internal/platform/correlation"
	"github.com/openfabrik/datakit/internal/repository"
)

// defaultBulkWorkers bounds the concurrency of bulk operations.
const defaultBulkWorkers = 4

// Hook runs against a single entity at a service boundary. AfterFind hooks
// run on every entity returned by a read operation; a hook failure fails the
// whole operation.
type Hook[T domain.Record] func(context.Context, T) error

// ServiceOption configures a Service at construction.
type ServiceOption[T domain.Record] func(*Service[T])

// WithValidation toggles entity validation before mutations. Enabled by
// default.
func WithValidation[T domain.Record](enabled bool) ServiceOption[T] {
	return func(s *Service[T]) { s.validate = enabled }
}

// WithAfterFind registers a hook applied to every entity a read returns,
// before the caller sees it.
func WithAfterFind[T domain.Record](hook Hook[T]) ServiceOption[T] {
	return func(s *Service[T]) { s.afterFind = append(s.afterFind, hook) }
}

// WithBulkWorkers sets the concurrency bound for bulk operations.
func WithBulkWorkers[T domain.Record](workers int) ServiceOption[T] {
	return func(s *Service[T]) {
		if workers >= 1 {
			s.bulkWorkers = workers
		}
	}
}

// Service orchestrates use cases for one entity type: it validates before
// mutations, delegates persistence to the repository, applies read hooks, and
// stamps every failure with the operation's correlation trace id. It contains
// no storage logic and no business rules beyond the entity's own Validate.
type Service[T domain.Record] struct {
	entity      string
	repo        *repository.Repository[T]
	logger      *slog.Logger
	validate    bool
	afterFind   []Hook[T]
	bulkWorkers int
}

// NewService creates a Service over the given repository. The logger is used
// for structured operation/error logging.
func NewService[T domain.Record](repo *repository.Repository[T], logger *slog.Logger, opts ...ServiceOption[T]) *Service[T] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service[T]{
		entity:      repo.Entity(),
		repo:        repo,
		logger:      logger,
		validate:    true,
		bulkWorkers: defaultBulkWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and persists a new entity, returning it with its
// server-assigned envelope (id, version, timestamps).
func (s *Service[T]) Create(ctx context.Context, entity T) (T, error) {
	ctx, traceID := s.begin(ctx)
	s.logger.InfoContext(ctx, "creating entity", s.attrs()...)

	var zero T
	if err := s.checkValid(entity); err != nil {
		return zero, s.fail(ctx, "Create", traceID, err)
	}

	created, err := s.repo.Create(ctx, entity)
	if err != nil {
		return zero, s.fail(ctx, "Create", traceID, err)
	}
	return created, nil
}

// Get returns the entity with the given id after applying read hooks.
func (s *Service[T]) Get(ctx context.Context, id domain.EntityID) (T, error) {
	ctx, traceID := s.begin(ctx)
	s.logger.InfoContext(ctx, "fetching entity", s.attrs(slog.String("id", id.String()))...)

	var zero T
	entity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return zero, s.fail(ctx, "Get", traceID, err)
	}
	if err := s.applyAfterFind(ctx, entity); err != nil {
		return zero, s.fail(ctx, "Get", traceID, err)
	}
	return entity, nil
}

// Update validates and persists changes to an existing entity.
func (s *Service[T]) Update(ctx context.Context, entity T) (T, error) {
	ctx, traceID := s.begin(ctx)
	s.logger.InfoContext(ctx, "updating entity",
		s.attrs(slog.String("id", entity.Envelope().ID.String()))...)

	var zero T
	if err := s.checkValid(entity); err != nil {
		return zero, s.fail(ctx, "Update", traceID, err)
	}

	updated, err := s.repo.Update(ctx, entity)
	if err != nil {
		return zero, s.fail(ctx, "Update", traceID, err)
	}
	return updated, nil
}

// Delete removes an entity per the repository's deletion policy.
func (s *Service[T]) Delete(ctx context.Context, id domain.EntityID) error {
	ctx, traceID := s.begin(ctx)
	s.logger.InfoContext(ctx, "deleting entity", s.attrs(slog.String("id", id.String()))...)

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.fail(ctx, "Delete", traceID, err)
	}
	return nil
}

// HardDelete physically removes an entity regardless of the deletion policy.
func (s *Service[T]) HardDelete(ctx context.Context, id domain.EntityID) error {
	ctx, traceID := s.begin(ctx)
	s.logger.InfoContext(ctx, "hard deleting entity", s.attrs(slog.String("id", id.String()))...)

	if err := s.repo.HardDelete(ctx, id); err != nil {
		return s.fail(ctx, "HardDelete", traceID, err)
	}
	return nil
}

// Restore brings a soft-deleted entity back into the visible set.
func (s *Service[T]) Restore(ctx context.Context, id domain.EntityID) (T, error) {
	ctx, traceID := s.begin(ctx)
	s.logger.InfoContext(ctx, "restoring entity", s.attrs(slog.String("id", id.String()))...)

	restored, err := s.repo.Restore(ctx, id)
	if err != nil {
		var zero T
		return zero, s.fail(ctx, "Restore", traceID, err)
	}
	return restored, nil
}

// List returns one offset-paginated page of entities, with read hooks applied
// to every returned entity.
func (s *Service[T]) List(ctx context.Context, opts repository.ListOptions) (page.Result[T], error) {
	ctx, traceID := s.begin(ctx)
	s.logger.InfoContext(ctx, "listing entities", s.attrs()...)

	result, err := s.repo.List(ctx, opts)
	if err != nil {
		return page.Result[T]{}, s.fail(ctx, "List", traceID, err)
	}
	for _, entity := range result.Data {
		if err := s.applyAfterFind(ctx, entity); err != nil {
			return page.Result[T]{}, s.fail(ctx, "List", traceID, err)
		}
	}
	return result, nil
}

// Search returns one cursor-paginated window of entities matching free text
// and criteria, with read hooks applied.
func (s *Service[T]) Search(ctx context.Context, opts repository.SearchOptions) (page.CursorResult[T], error) {
	ctx, traceID := s.begin(ctx)
	s.logger.InfoContext(ctx, "searching entities", s.attrs(slog.String("text", opts.Text))...)

	result, err := s.repo.Search(ctx, opts)
	if err != nil {
		return page.CursorResult[T]{}, s.fail(ctx, "Search", traceID, err)
	}
	for _, entity := range result.Data {
		if err := s.applyAfterFind(ctx, entity); err != nil {
			return page.CursorResult[T]{}, s.fail(ctx, "Search", traceID, err)
		}
	}
	return result, nil
}

// Count returns the number of visible entities matching the criteria.
func (s *Service[T]) Count(ctx context.Context, criteria filter.Criteria) (int64, error) {
	ctx, traceID := s.begin(ctx)

	total, err := s.repo.Count(ctx, criteria)
	if err != nil {
		return 0, s.fail(ctx, "Count", traceID, err)
	}
	return total, nil
}

// Exists reports whether a visible entity with the given id exists.
func (s *Service[T]) Exists(ctx context.Context, id domain.EntityID) (bool, error) {
	ctx, traceID := s.begin(ctx)

	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return false, s.fail(ctx, "Exists", traceID, err)
	}
	return exists, nil
}

// BulkResult pairs one entity from a bulk operation with its outcome.
type BulkResult[T domain.Record] struct {
	Entity T
	Err    error
}

// BulkUpdate validates and updates a batch of entities with bounded
// concurrency. Each entity succeeds or fails independently; results preserve
// input order and carry the per-entity error where one occurred.
func (s *Service[T]) BulkUpdate(ctx context.Context, entities []T) ([]BulkResult[T], error) {
	ctx, traceID := s.begin(ctx)
	s.logger.InfoContext(ctx, "bulk updating entities",
		s.attrs(slog.Int("count", len(entities)))...)

	outcomes := fanout.Run(ctx, s.bulkWorkers, entities, func(ctx context.Context, entity T) (T, error) {
		if err := s.checkValid(entity); err != nil {
			var zero T
			return zero, err
		}
		return s.repo.Update(ctx, entity)
	})

	results := make([]BulkResult[T], len(outcomes))
	failed := 0
	for i, outcome := range outcomes {
		results[i] = BulkResult[T]{Entity: outcome.Value, Err: outcome.Err}
		if outcome.Err != nil {
			results[i].Err = apperr.Coerce(outcome.Err).WithTraceID(traceID)
			failed++
		}
	}

	if failed > 0 {
		s.logger.WarnContext(ctx, "bulk update completed with failures",
			s.attrs(slog.Int("failed", failed), slog.Int("total", len(entities)))...)
	}
	return results, nil
}

// begin resolves the operation's correlation trace id and attaches it to the
// context so logs and errors share it.
func (s *Service[T]) begin(ctx context.Context) (context.Context, domain.TraceID) {
	return correlation.Ensure(ctx)
}

// fail stamps the error with the correlation trace id and logs it once at the
// service boundary. The typed error is returned for the transport layer to
// shape.
func (s *Service[T]) fail(ctx context.Context, operation string, traceID domain.TraceID, err error) error {
	appErr := apperr.Coerce(err).WithTraceID(traceID)
	s.logger.ErrorContext(ctx, "operation failed",
		s.attrs(
			slog.String("operation", operation),
			slog.String("trace_id", traceID.String()),
			slog.Any("error", appErr),
		)...)
	return appErr
}

// checkValid runs the entity's own validation. A plain error from Validate
// becomes a typed validation failure; an already-typed error passes through.
func (s *Service[T]) checkValid(entity T) error {
	if !s.validate {
		return nil
	}
	err := entity.Validate()
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperr.NewValidation(err.Error(), nil)
}

func (s *Service[T]) applyAfterFind(ctx context.Context, entity T) error {
	for _, hook := range s.afterFind {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service[T]) attrs(extra ...any) []any {
	return append([]any{slog.String("entity", s.entity)}, extra...)
}
