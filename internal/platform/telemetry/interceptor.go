package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"

	"github.com/openfabrik/datakit/internal/repository"
)

// MetricsInterceptor records repository operation counts. It plugs into the
// repository's interceptor chain, so every primitive the repository runs is
// counted with entity, operation, and result labels. Safe to construct with
// nil metrics, in which case recording is skipped.
type MetricsInterceptor struct {
	repository.NopInterceptor

	entity  string
	metrics *Metrics
}

// NewMetricsInterceptor creates a metrics interceptor for the named entity type.
func NewMetricsInterceptor(entity string, metrics *Metrics) *MetricsInterceptor {
	return &MetricsInterceptor{entity: entity, metrics: metrics}
}

var _ repository.Interceptor = (*MetricsInterceptor)(nil)

// After counts a successful operation.
func (m *MetricsInterceptor) After(ctx context.Context, op repository.Operation, _ any) {
	if m.metrics == nil {
		return
	}
	m.metrics.RepoOperationTotal.Add(ctx, 1, metric.WithAttributes(
		AttrEntity.String(m.entity),
		AttrOperation.String(string(op)),
		AttrResult.String("success"),
	))
}

// OnError counts a failed operation on both the total and error counters.
func (m *MetricsInterceptor) OnError(ctx context.Context, op repository.Operation, _ error) {
	if m.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		AttrEntity.String(m.entity),
		AttrOperation.String(string(op)),
		AttrResult.String("error"),
	)
	m.metrics.RepoOperationTotal.Add(ctx, 1, attrs)
	m.metrics.RepoOperationErrors.Add(ctx, 1, attrs)
}
