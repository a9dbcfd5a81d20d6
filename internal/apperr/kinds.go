package apperr

import (
	"fmt"
	"net/http"
	"time"
)

// Stable error codes, one per kind.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeRateLimit         = "RATE_LIMIT_EXCEEDED"
	CodeInternal          = "INTERNAL_SERVER_ERROR"
	CodeDatabase          = "DATABASE_ERROR"
	CodeNetwork           = "NETWORK_ERROR"
	CodeBusinessRule      = "BUSINESS_RULE_VIOLATION"
	CodeConcurrency       = "CONCURRENCY_CONFLICT"
	CodeInvariant         = "INVARIANT_VIOLATION"
	CodeResourceExhausted = "RESOURCE_EXHAUSTED"
	CodeTimeout           = "TIMEOUT"
)

// genericInternalMessage is what 5xx-class responses show callers instead of
// the real message, which may leak internals.
const genericInternalMessage = "an internal error occurred"

// NewValidation returns a 400 validation error with a per-field issue list.
// Not retryable; low severity.
func NewValidation(message string, fields map[string]string) *Error {
	e := newError(KindValidation, CodeValidation, http.StatusBadRequest, false, SeverityLow, message)
	if len(fields) > 0 {
		e.context = map[string]any{"fields": fields}
	}
	return e
}

// NewNotFound returns a 404 error for a missing resource.
// Not retryable; low severity.
func NewNotFound(resource string, identifier any) *Error {
	e := newError(KindNotFound, CodeNotFound, http.StatusNotFound, false, SeverityLow,
		fmt.Sprintf("%s with identifier %v not found", resource, identifier))
	e.context = map[string]any{"resource": resource, "identifier": identifier}
	return e
}

// NewConflict returns a 409 error for a state conflict such as a uniqueness
// violation. Not retryable; medium severity.
func NewConflict(message, conflictType string, value any) *Error {
	e := newError(KindConflict, CodeConflict, http.StatusConflict, false, SeverityMedium, message)
	e.context = map[string]any{"conflictType": conflictType, "value": value}
	return e
}

// NewUnauthorized returns a 401 error. Not retryable; medium severity.
func NewUnauthorized(message string) *Error {
	if message == "" {
		message = "authentication required"
	}
	return newError(KindUnauthorized, CodeUnauthorized, http.StatusUnauthorized, false, SeverityMedium, message)
}

// NewForbidden returns a 403 error. Not retryable; medium severity.
func NewForbidden(message string) *Error {
	if message == "" {
		message = "access denied"
	}
	return newError(KindForbidden, CodeForbidden, http.StatusForbidden, false, SeverityMedium, message)
}

// NewRateLimit returns a 429 error with a retry-after hint.
// Retryable; medium severity.
func NewRateLimit(retryAfter time.Duration) *Error {
	e := newError(KindRateLimit, CodeRateLimit, http.StatusTooManyRequests, true, SeverityMedium,
		"rate limit exceeded")
	e.context = map[string]any{"retryAfterMs": retryAfter.Milliseconds()}
	return e
}

// NewInternal returns a 500 error wrapping an unclassified failure.
// Retryable; high severity.
func NewInternal(cause error) *Error {
	e := newError(KindInternal, CodeInternal, http.StatusInternalServerError, true, SeverityHigh,
		"unexpected internal error")
	e.cause = cause
	return e
}

// NewDatabase returns a 500 error for a storage-layer failure, recording the
// operation and query for the log record. Retryable; high severity.
func NewDatabase(operation, query string, cause error) *Error {
	e := newError(KindDatabase, CodeDatabase, http.StatusInternalServerError, true, SeverityHigh,
		fmt.Sprintf("database operation %s failed", operation))
	e.context = map[string]any{"operation": operation, "query": query}
	e.cause = cause
	return e
}

// NewNetwork returns a 503 error for a failed call to a remote collaborator.
// Retryable; high severity.
func NewNetwork(endpoint, method string, cause error) *Error {
	e := newError(KindNetwork, CodeNetwork, http.StatusServiceUnavailable, true, SeverityHigh,
		fmt.Sprintf("network call %s %s failed", method, endpoint))
	e.context = map[string]any{"endpoint": endpoint, "method": method}
	e.cause = cause
	return e
}

// NewBusinessRule returns a 422 error for a violated business rule.
// Not retryable; medium severity.
func NewBusinessRule(rule string, params map[string]any) *Error {
	e := newError(KindBusinessRule, CodeBusinessRule, http.StatusUnprocessableEntity, false, SeverityMedium,
		fmt.Sprintf("business rule %q violated", rule))
	e.context = map[string]any{"rule": rule}
	if len(params) > 0 {
		e.context["params"] = params
	}
	return e
}

// NewConcurrency returns a 409 error for an optimistic-locking version
// mismatch. Retryable (the caller may re-read and retry); medium severity.
func NewConcurrency(expectedVersion, actualVersion int64) *Error {
	e := newError(KindConcurrency, CodeConcurrency, http.StatusConflict, true, SeverityMedium,
		fmt.Sprintf("version conflict: expected %d, found %d", expectedVersion, actualVersion))
	e.context = map[string]any{
		"expectedVersion": expectedVersion,
		"actualVersion":   actualVersion,
	}
	return e
}

// NewInvariant returns a 422 error for a broken aggregate invariant.
// Not retryable; high severity because it signals corrupted state.
func NewInvariant(invariant, aggregateType, aggregateID string) *Error {
	e := newError(KindInvariant, CodeInvariant, http.StatusUnprocessableEntity, false, SeverityHigh,
		fmt.Sprintf("invariant %q violated on %s %s", invariant, aggregateType, aggregateID))
	e.context = map[string]any{
		"invariant":     invariant,
		"aggregateType": aggregateType,
		"aggregateId":   aggregateID,
	}
	return e
}

// NewResourceExhausted returns a 429 error for a capacity limit.
// Retryable; medium severity.
func NewResourceExhausted(resource string, limit, current int64) *Error {
	e := newError(KindResourceExhausted, CodeResourceExhausted, http.StatusTooManyRequests, true, SeverityMedium,
		fmt.Sprintf("resource %q exhausted: %d of %d in use", resource, current, limit))
	e.context = map[string]any{"resource": resource, "limit": limit, "current": current}
	return e
}

// NewTimeout returns a 408 error for an operation that exceeded its deadline.
// Retryable; medium severity.
func NewTimeout(operation string, timeout time.Duration) *Error {
	e := newError(KindTimeout, CodeTimeout, http.StatusRequestTimeout, true, SeverityMedium,
		fmt.Sprintf("operation %s timed out after %s", operation, timeout))
	e.context = map[string]any{"operation": operation, "timeoutMs": timeout.Milliseconds()}
	return e
}
