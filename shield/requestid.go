package shield

import (
	"log/slog"
	"net/http"

	"github.com/hazyhaar/parsekit/idgen"
	"github.com/hazyhaar/parsekit/kit"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDPrefix = "req_"

// RequestID tags each request with an ID and a logger bound to it. A
// well-formed inbound X-Request-ID is reused, anything else is replaced with
// one from gen. The ID is echoed in the response header and stored in the
// context with kit.WithRequestID; the logger with kit.WithLogger.
func RequestID(logger *slog.Logger, gen idgen.Generator) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if !idgen.Valid(id, requestIDPrefix) {
				id = gen()
			}
			w.Header().Set(RequestIDHeader, id)

			log := logger.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)
			ctx := kit.WithRequestID(r.Context(), id)
			ctx = kit.WithTransport(ctx, "http")
			ctx = kit.WithLogger(ctx, log)
			log.Debug("request", "remote_addr", r.RemoteAddr)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
