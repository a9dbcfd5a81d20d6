// Package handlers provides the HTTP request handlers for the inbound
// adapter layer.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/openfabrik/datakit/internal/adapters/http/dto"
	"github.com/openfabrik/datakit/internal/apperr"
	"github.com/openfabrik/datakit/internal/domain"
)

// parseEntityID extracts an entity id path parameter from the chi URL params.
func parseEntityID(r *http.Request, param string) (domain.EntityID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return "", apperr.NewValidation("invalid path parameter",
			map[string]string{param: "is required"})
	}
	return domain.EntityID(raw), nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}

// maxJSONBodyBytes is the maximum allowed size for a JSON request body (1 MB).
const maxJSONBodyBytes = 1 << 20

// decodeJSONBody decodes the request body as JSON into dst. The body is
// limited to maxJSONBodyBytes to prevent resource exhaustion. On failure,
// it writes a 400 error response and returns false.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, errs *apperr.Handler, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		dto.WriteError(w, r, errs, apperr.NewValidation("invalid request body",
			map[string]string{"body": "invalid JSON"}))
		return false
	}
	return true
}

// validatable is implemented by request DTOs that support validation.
type validatable interface {
	Validate() error
}

// decodeAndValidate decodes the JSON request body into dst and validates it.
// On decode or validation failure it writes an error response and returns false.
func decodeAndValidate[T validatable](w http.ResponseWriter, r *http.Request, errs *apperr.Handler, dst T) bool {
	if !decodeJSONBody(w, r, errs, dst) {
		return false
	}
	if err := dst.Validate(); err != nil {
		dto.WriteError(w, r, errs, err)
		return false
	}
	return true
}
