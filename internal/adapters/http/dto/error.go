// Package dto provides HTTP request/response data transfer objects and the
// uniform success/error envelopes for the inbound HTTP adapter layer.
package dto

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/openfabrik/datakit/internal/apperr"
	"github.com/openfabrik/datakit/internal/platform/correlation"
)

// WriteError runs err through the error handling pipeline and writes the
// resulting envelope. The handler classifies the failure, logs one record,
// and masks 5xx internals; the HTTP status comes from the classified error.
// A trace id from the request context is stamped if the error lacks one.
func WriteError(w http.ResponseWriter, r *http.Request, h *apperr.Handler, err error) {
	e := apperr.Coerce(err)
	if e.TraceID().IsZero() {
		if id := correlation.FromContext(r.Context()); !id.IsZero() {
			e = e.WithTraceID(id)
		}
	}
	writeErrorBody(w, r, e.StatusCode(), h.Handle(r.Context(), e))
}

// WriteErrorResponse writes the envelope for an already-classified error
// without running the logging pipeline. Used where the caller has logged the
// failure itself, such as panic recovery.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, e *apperr.Error) {
	writeErrorBody(w, r, e.StatusCode(), apperr.ToResponse(e))
}

func writeErrorBody(w http.ResponseWriter, r *http.Request, status int, resp apperr.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode error response",
			slog.Any("error", err),
		)
	}
}
