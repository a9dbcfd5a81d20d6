package middleware

import (
	"net/http"

	"github.com/openfabrik/datakit/internal/domain"
	"github.com/openfabrik/datakit/internal/platform/correlation"
)

const headerCorrelationID = "X-Correlation-ID"

// Correlation returns middleware that resolves the trace id for each request.
// If the incoming request has an X-Correlation-ID header, it is reused;
// otherwise the request ID from context serves as a fallback. The resolved id
// is stored as the context trace id, so downstream services and error
// responses stamp the same value, and is echoed as a response header.
//
// This middleware must run after RequestID so that the fallback value is
// available.
func Correlation() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(headerCorrelationID)
			if id == "" {
				id = RequestIDFromContext(r.Context())
			}
			ctx := correlation.WithTraceID(r.Context(), domain.TraceID(id))
			w.Header().Set(headerCorrelationID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
