// Package apperr defines the typed error taxonomy shared by every layer:
// each error carries a stable code, an HTTP-style status, a correlation trace
// id, a timestamp, optional structured context, and its retryability and
// operational severity. The handling pipeline (transform → log → respond)
// lives in handler.go.
//
// Construction uses per-kind constructors (NewNotFound, NewConcurrency, ...).
// Matching uses errors.As with *Error, or the KindOf/IsRetryable helpers.
package apperr

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/openfabrik/datakit/internal/domain"
)

// Kind discriminates the error taxonomy.
type Kind string

// Error kinds. Each maps to a fixed code/status/retryability/severity tuple;
// see the constructors in kinds.go.
const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindRateLimit         Kind = "rate_limit"
	KindInternal          Kind = "internal"
	KindDatabase          Kind = "database"
	KindNetwork           Kind = "network"
	KindBusinessRule      Kind = "business_rule"
	KindConcurrency       Kind = "concurrency"
	KindInvariant         Kind = "invariant_violation"
	KindResourceExhausted Kind = "resource_exhausted"
	KindTimeout           Kind = "timeout"
)

// Severity classifies an error's operational impact, distinct from its
// retryability.
type Severity string

// Severity levels, in increasing order of impact.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Error is the concrete taxonomy error. All fields are set by the kind
// constructors; callers enrich trace id and context through the With*
// methods, which never mutate in place.
type Error struct {
	kind       Kind
	code       string
	message    string
	statusCode int
	traceID    domain.TraceID
	timestamp  time.Time
	context    map[string]any
	retryable  bool
	severity   Severity
	cause      error
}

func newError(kind Kind, code string, status int, retryable bool, severity Severity, message string) *Error {
	return &Error{
		kind:       kind,
		code:       code,
		message:    message,
		statusCode: status,
		timestamp:  time.Now().UTC(),
		retryable:  retryable,
		severity:   severity,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

// Unwrap exposes the cause for errors.Is/errors.As traversal.
func (e *Error) Unwrap() error { return e.cause }

// Kind returns the taxonomy kind.
func (e *Error) Kind() Kind { return e.kind }

// Code returns the stable machine-readable error code.
func (e *Error) Code() string { return e.code }

// Message returns the human-readable message. For 5xx-class errors this is
// only safe for logs; the response pipeline substitutes a generic phrase.
func (e *Error) Message() string { return e.message }

// StatusCode returns the HTTP-style status classification.
func (e *Error) StatusCode() int { return e.statusCode }

// TraceID returns the correlation id threaded into the error, if any.
func (e *Error) TraceID() domain.TraceID { return e.traceID }

// Timestamp returns when the error was constructed.
func (e *Error) Timestamp() time.Time { return e.timestamp }

// Context returns a copy of the structured, kind-specific detail.
func (e *Error) Context() map[string]any {
	if e.context == nil {
		return nil
	}
	return maps.Clone(e.context)
}

// IsRetryable reports whether the caller may retry the failed operation.
// The core never retries automatically; this informs the caller's policy.
func (e *Error) IsRetryable() bool { return e.retryable }

// Severity returns the operational-impact classification.
func (e *Error) Severity() Severity { return e.severity }

// IsClientError reports whether the error is 4xx-class, whose messages are
// safe to expose verbatim.
func (e *Error) IsClientError() bool {
	return e.statusCode >= 400 && e.statusCode < 500
}

// WithTraceID returns a copy carrying the correlation id. An already-set
// trace id is preserved so the first observation point wins.
func (e *Error) WithTraceID(id domain.TraceID) *Error {
	if !e.traceID.IsZero() || id.IsZero() {
		return e
	}
	c := e.clone()
	c.traceID = id
	return c
}

// WithContext returns a copy with an additional structured detail entry.
func (e *Error) WithContext(key string, value any) *Error {
	c := e.clone()
	if c.context == nil {
		c.context = make(map[string]any)
	}
	c.context[key] = value
	return c
}

// WithCause returns a copy wrapping the underlying error.
func (e *Error) WithCause(cause error) *Error {
	c := e.clone()
	c.cause = cause
	return c
}

func (e *Error) clone() *Error {
	c := *e
	if e.context != nil {
		c.context = maps.Clone(e.context)
	}
	return &c
}

// Coerce converts any failure into a taxonomy error. Taxonomy errors pass
// through unchanged (including wrapped ones); anything else becomes an
// InternalServer error retaining the original as cause so logs keep the full
// chain while responses stay generic.
func Coerce(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewInternal(err)
}

// KindOf returns the taxonomy kind of err, or "" when err is not (and does
// not wrap) a taxonomy error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return ""
}

// IsKind reports whether err is (or wraps) a taxonomy error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsNotFound reports whether err classifies as a not-found failure.
func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }

// IsRetryable reports whether err is a taxonomy error the caller may retry.
// Non-taxonomy errors are not retryable until classified.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.retryable
	}
	return false
}
