package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/openfabrik/datakit/internal/adapters/http/dto"
	"github.com/openfabrik/datakit/internal/apperr"
	"github.com/openfabrik/datakit/internal/platform/correlation"
)

// Recovery returns middleware that recovers from panics in downstream
// handlers. When a panic occurs the middleware logs the panic value with the
// full stack trace and returns a masked 500 envelope. If the response headers
// have already been written, only the log entry is emitted.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newResponseWriter(w)

			defer func() {
				if v := recover(); v != nil {
					logger.ErrorContext(r.Context(), "panic recovered",
						slog.String("panic", fmt.Sprint(v)),
						slog.String("stack", string(debug.Stack())),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
					)

					if !rw.headerWritten {
						e := apperr.NewInternal(fmt.Errorf("panic: %v", v)).
							WithTraceID(correlation.FromContext(r.Context()))
						dto.WriteErrorResponse(rw, r, e)
					}
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
