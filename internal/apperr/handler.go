package apperr

import (
	"context"
	"log/slog"
	"time"
)

// Response is the uniform error envelope returned to callers after the
// handling pipeline runs.
type Response struct {
	Success   bool           `json:"success"`
	ErrorCode string         `json:"error"`
	Message   string         `json:"message"`
	TraceID   string         `json:"traceId,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// Handler runs the transform → log → respond pipeline. It classifies any
// failure into the taxonomy, emits one log record at a level derived from
// severity, and produces the response envelope with 5xx internals masked.
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates an error handler logging through the given logger.
func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{logger: logger}
}

// Handle classifies, logs, and converts a failure into the response envelope.
// The full message, context, and cause chain go to the log record keyed by
// trace id; the response exposes details only for 4xx-class errors.
func (h *Handler) Handle(ctx context.Context, err error) Response {
	e := Coerce(err)
	h.log(ctx, e)
	return ToResponse(e)
}

// log emits one record for the error. Severity maps to log level: low is
// expected caller misuse (WARN), everything else is an operational failure
// (ERROR). slog has no fatal level, so critical errors are flagged with an
// explicit severity attribute for alerting instead.
func (h *Handler) log(ctx context.Context, e *Error) {
	attrs := []any{
		slog.String("code", e.code),
		slog.Int("status", e.statusCode),
		slog.String("severity", string(e.severity)),
		slog.Bool("retryable", e.retryable),
		slog.Any("error", e),
	}
	if !e.traceID.IsZero() {
		attrs = append(attrs, slog.String("trace_id", e.traceID.String()))
	}
	if len(e.context) > 0 {
		attrs = append(attrs, slog.Any("context", e.context))
	}

	if e.severity == SeverityLow {
		h.logger.WarnContext(ctx, e.message, attrs...)
		return
	}
	h.logger.ErrorContext(ctx, e.message, attrs...)
}

// ToResponse converts a taxonomy error into the response envelope without
// logging. Exposure rule: 4xx messages are shown verbatim with structured
// details; 5xx messages are replaced by a generic phrase and details are
// dropped so internals never leak to callers.
func ToResponse(e *Error) Response {
	resp := Response{
		Success:   false,
		ErrorCode: e.code,
		TraceID:   e.traceID.String(),
		Timestamp: e.timestamp,
	}

	if e.IsClientError() {
		resp.Message = e.message
		resp.Details = e.Context()
		return resp
	}

	resp.Message = genericInternalMessage
	return resp
}
