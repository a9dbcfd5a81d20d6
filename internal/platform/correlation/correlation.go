// Package correlation assigns and propagates the trace id that ties together
// the log records and the error response of a single logical operation. When
// the request already runs inside an OpenTelemetry span the span's trace id
// is reused so logs, errors, and exported traces line up; otherwise a fresh
// id is generated.
package correlation

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/openfabrik/datakit/internal/domain"
)

type contextKey struct{}

// WithTraceID attaches a trace id to the context for downstream propagation.
func WithTraceID(ctx context.Context, id domain.TraceID) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the trace id attached to the context, or the zero value
// when none is present.
func FromContext(ctx context.Context) domain.TraceID {
	id, _ := ctx.Value(contextKey{}).(domain.TraceID)
	return id
}

// TraceID resolves the trace id for the current operation. Resolution order:
// an id already attached to the context, the active span's trace id, then a
// newly generated id.
func TraceID(ctx context.Context) domain.TraceID {
	if id := FromContext(ctx); !id.IsZero() {
		return id
	}
	if span := trace.SpanContextFromContext(ctx); span.HasTraceID() {
		return domain.TraceID(span.TraceID().String())
	}
	return domain.TraceID(uuid.NewString())
}

// Ensure resolves the operation's trace id and returns a context carrying it,
// so every log record and error in the operation shares the same id.
func Ensure(ctx context.Context) (context.Context, domain.TraceID) {
	if id := FromContext(ctx); !id.IsZero() {
		return ctx, id
	}
	id := TraceID(ctx)
	return WithTraceID(ctx, id), id
}
