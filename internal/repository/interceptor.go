package repository

import (
	"context"
	"log/slog"

	"github.com/openfabrik/datakit/internal/domain"
)

// Operation names one repository operation for interceptors, logging, and
// metrics.
type Operation string

// Repository operations observable by interceptors.
const (
	OpCreate     Operation = "Create"
	OpFindByID   Operation = "FindByID"
	OpFindMany   Operation = "FindMany"
	OpUpdate     Operation = "Update"
	OpDelete     Operation = "Delete"
	OpHardDelete Operation = "HardDelete"
	OpRestore    Operation = "Restore"
	OpCount      Operation = "Count"
	OpList       Operation = "List"
	OpSearch     Operation = "Search"
	OpExists     Operation = "Exists"
)

// Interceptor observes repository operations. Interceptors run in
// registration order around every operation: Before each invocation, After
// on success, OnError on failure. They are observation points — OnError and
// After cannot alter the operation's outcome, and errors always propagate to
// the caller unchanged. A Before error aborts the operation and propagates.
type Interceptor interface {
	Before(ctx context.Context, op Operation, subject any) error
	After(ctx context.Context, op Operation, subject any)
	OnError(ctx context.Context, op Operation, err error)
}

// NopInterceptor implements Interceptor with no-ops, for embedding by
// interceptors that only care about some callbacks.
type NopInterceptor struct{}

func (NopInterceptor) Before(context.Context, Operation, any) error { return nil }
func (NopInterceptor) After(context.Context, Operation, any)        {}
func (NopInterceptor) OnError(context.Context, Operation, error)    {}

// AuditInterceptor emits an audit log record for every mutating operation,
// recording the operation, entity id, and acting user. The repository
// registers it automatically when the AuditTrail policy is enabled.
type AuditInterceptor struct {
	NopInterceptor
	entity string
	logger *slog.Logger
}

// NewAuditInterceptor creates an audit interceptor for the named entity type.
func NewAuditInterceptor(entity string, logger *slog.Logger) *AuditInterceptor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AuditInterceptor{entity: entity, logger: logger}
}

// After logs successful mutations. Read operations are not audited.
func (a *AuditInterceptor) After(ctx context.Context, op Operation, subject any) {
	switch op {
	case OpCreate, OpUpdate, OpDelete, OpHardDelete, OpRestore:
	default:
		return
	}

	attrs := []any{
		slog.String("entity", a.entity),
		slog.String("operation", string(op)),
	}
	if rec, ok := subject.(domain.Record); ok {
		attrs = append(attrs, slog.String("entity_id", rec.Envelope().ID.String()))
	} else if id, ok := subject.(domain.EntityID); ok {
		attrs = append(attrs, slog.String("entity_id", id.String()))
	}
	if actor := domain.ActorFrom(ctx); actor != nil {
		attrs = append(attrs, slog.String("actor", actor.String()))
	}

	a.logger.InfoContext(ctx, "audit", attrs...)
}
