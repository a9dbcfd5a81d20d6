// Package resilient decorates a storage adapter with a circuit breaker,
// retry with exponential backoff, and optional client-side rate limiting.
// It implements the same store port it wraps, so repositories stay unaware
// of the resilience layer.
//
// Pipeline per primitive call:
//
//	Circuit Breaker → Rate Limiter → Retry → inner store
package resilient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/openfabrik/datakit/internal/apperr"
	"github.com/openfabrik/datakit/internal/domain"
	"github.com/openfabrik/datakit/internal/domain/filter"
	"github.com/openfabrik/datakit/internal/platform/config"
	"github.com/openfabrik/datakit/internal/platform/retry"
	"github.com/openfabrik/datakit/internal/ports"
)

// Store wraps an inner store with resilience controls. The circuit breaker
// tracks infrastructure failures only: typed non-retryable errors (not found,
// validation, conflicts) are business outcomes and never trip the breaker.
type Store[T domain.Record] struct {
	name     string
	inner    ports.Store[T]
	breaker  *gobreaker.CircuitBreaker[struct{}]
	limiter  *rate.Limiter // nil when rate limiting is disabled
	retryCfg retry.Config
	logger   *slog.Logger
}

// New wraps the inner store. The name identifies the backing store in breaker
// state logs and health reporting (e.g. "customers-db").
func New[T domain.Record](name string, inner ports.Store[T], cfg config.StoreConfig, logger *slog.Logger) *Store[T] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: toUint32(cfg.CircuitBreaker.HalfOpenLimit),
		Timeout:     cfg.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= cfg.CircuitBreaker.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Business outcomes carried as typed non-retryable errors do
			// not indicate store trouble.
			var appErr *apperr.Error
			return errors.As(err, &appErr) && !appErr.IsRetryable()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	var limiter *rate.Limiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.BurstSize)
	}

	return &Store[T]{
		name:    name,
		inner:   inner,
		breaker: cb,
		limiter: limiter,
		retryCfg: retry.Config{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
			Multiplier:      cfg.Retry.Multiplier,
		},
		logger: logger,
	}
}

var _ ports.Store[domain.Record] = (*Store[domain.Record])(nil)

func (s *Store[T]) Create(ctx context.Context, entity T) (T, error) {
	return execute(ctx, s, "Create", func(ctx context.Context) (T, error) {
		return s.inner.Create(ctx, entity)
	})
}

func (s *Store[T]) FindByID(ctx context.Context, id domain.EntityID) (T, error) {
	return execute(ctx, s, "FindByID", func(ctx context.Context) (T, error) {
		return s.inner.FindByID(ctx, id)
	})
}

func (s *Store[T]) FindMany(ctx context.Context, q ports.Query) ([]T, error) {
	return execute(ctx, s, "FindMany", func(ctx context.Context) ([]T, error) {
		return s.inner.FindMany(ctx, q)
	})
}

func (s *Store[T]) Update(ctx context.Context, entity T) (T, error) {
	return execute(ctx, s, "Update", func(ctx context.Context) (T, error) {
		return s.inner.Update(ctx, entity)
	})
}

func (s *Store[T]) Delete(ctx context.Context, id domain.EntityID) error {
	_, err := execute(ctx, s, "Delete", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.inner.Delete(ctx, id)
	})
	return err
}

func (s *Store[T]) Count(ctx context.Context, criteria filter.Criteria) (int64, error) {
	return execute(ctx, s, "Count", func(ctx context.Context) (int64, error) {
		return s.inner.Count(ctx, criteria)
	})
}

func (s *Store[T]) Search(ctx context.Context, q ports.SearchQuery) ([]T, error) {
	return execute(ctx, s, "Search", func(ctx context.Context) ([]T, error) {
		return s.inner.Search(ctx, q)
	})
}

// Name returns the backing store identifier. Together with HealthCheck it
// lets Store satisfy the ports.HealthChecker interface via structural typing.
func (s *Store[T]) Name() string { return s.name }

// HealthCheck reports the backing store's availability based on the circuit
// breaker state. No store call is made.
func (s *Store[T]) HealthCheck(_ context.Context) error {
	switch state := s.breaker.State(); state {
	case gobreaker.StateClosed:
		return nil
	case gobreaker.StateHalfOpen:
		return fmt.Errorf("%s: degraded (circuit breaker half-open)", s.name)
	case gobreaker.StateOpen:
		return fmt.Errorf("%s: failing (circuit breaker open)", s.name)
	default:
		return fmt.Errorf("%s: unknown circuit breaker state %v", s.name, state)
	}
}

// execute runs one primitive through the resilience pipeline. The breaker
// wraps the whole retry loop so a budget of failed attempts counts once.
func execute[T domain.Record, R any](ctx context.Context, s *Store[T], operation string, fn func(context.Context) (R, error)) (R, error) {
	var result R
	_, err := s.breaker.Execute(func() (struct{}, error) {
		if err := s.waitForRateLimit(ctx); err != nil {
			return struct{}{}, err
		}

		var retryErr error
		result, retryErr = retry.Do(ctx, s.retryCfg, s.name+"."+operation, fn)
		return struct{}{}, retryErr
	})
	if err != nil {
		var zero R
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, apperr.NewNetwork(s.name, operation, err)
		}
		return zero, err
	}
	return result, nil
}

// waitForRateLimit blocks until the rate limiter allows the call or the
// context is canceled. Returns nil immediately when rate limiting is disabled.
func (s *Store[T]) waitForRateLimit(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// toUint32 safely converts a non-negative int to uint32, clamping at the
// uint32 maximum. Negative values are treated as zero.
func toUint32(v int) uint32 {
	if v <= 0 {
		return 0
	}
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
