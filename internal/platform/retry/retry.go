// Package retry provides a generic retry helper with exponential backoff and
// jitter for transient storage and network failures. Whether a failure is
// worth retrying is decided by the error taxonomy: typed errors carry a
// retryable flag, and context cancellation always stops the loop.
package retry

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/openfabrik/datakit/internal/apperr"
	"github.com/openfabrik/datakit/internal/platform/logging"
)

// jitterFraction is the maximum jitter as a fraction of the delay (±25%).
const jitterFraction = 0.25

// Config holds the retry policy: attempt budget and backoff shape.
type Config struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// Do executes fn up to cfg.MaxAttempts times, sleeping with exponential
// backoff and ±25% jitter between attempts. A failure is retried only when
// the error taxonomy marks it retryable; plain untyped errors are retried as
// a conservative default. Context cancellation stops the loop immediately.
// The operation name appears in retry logs.
func Do[T any](ctx context.Context, cfg Config, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := range cfg.MaxAttempts {
		if attempt > 0 {
			if err := wait(ctx, cfg, operation, attempt, lastErr); err != nil {
				return zero, err
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return zero, err
		}
	}

	return zero, lastErr
}

// shouldRetry reports whether a failure is worth another attempt. Context
// cancellation and deadline expiry never are. Typed errors answer through
// their retryable flag; unknown errors default to retryable.
func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.IsRetryable()
	}
	return true
}

// wait sleeps for the backoff delay, logging the retry at WARN level. It
// returns early with ctx.Err() when the context is canceled mid-wait.
func wait(ctx context.Context, cfg Config, operation string, attempt int, lastErr error) error {
	delay := backoff(attempt, cfg)

	logger := logging.FromContext(ctx)
	logger.WarnContext(ctx, "retrying operation",
		slog.String("operation", operation),
		slog.Int("attempt", attempt+1),
		slog.Int("max_attempts", cfg.MaxAttempts),
		slog.Duration("backoff", delay),
		slog.Any("error", lastErr),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// backoff calculates the delay for a given retry attempt using exponential
// backoff with ±25% jitter. The attempt parameter is 1-indexed (attempt 1 is
// the first retry).
func backoff(attempt int, cfg Config) time.Duration {
	delay := float64(cfg.InitialInterval) * math.Pow(cfg.Multiplier, float64(attempt-1))

	// Cap at max interval before applying jitter.
	if delay > float64(cfg.MaxInterval) {
		delay = float64(cfg.MaxInterval)
	}

	// Apply ±25% jitter to prevent thundering herd.
	jitter := delay * jitterFraction
	delay += jitter * (2*secureRandFloat64() - 1)

	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// IEEE 754 double-precision constants for random float generation.
const (
	significandBits = 53
	uint64Bits      = 64
)

// secureRandFloat64 returns a random float64 in [0, 1) using crypto/rand.
func secureRandFloat64() float64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0
	}
	return float64(binary.BigEndian.Uint64(b[:])>>(uint64Bits-significandBits)) / float64(uint64(1)<<significandBits)
}
