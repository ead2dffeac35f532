// Package shield provides the HTTP middleware shared by parsekit surfaces:
// response security headers, request IDs with a per-request logger, optional
// Basic authentication and HEAD handling.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultAPIStack(logger) {
//	    r.Use(mw)
//	}
//	r.Use(shield.BasicAuth("parsekit", user, hash, "/healthz"))
package shield

import (
	"log/slog"
	"net/http"

	"github.com/hazyhaar/parsekit/idgen"
)

// DefaultAPIStack returns the standard middleware stack for the parse API.
// Order: HeadToGet → SecurityHeaders → RequestID.
func DefaultAPIStack(logger *slog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(APIHeaders()),
		RequestID(logger, idgen.Request),
	}
}

// HeadToGet serves HEAD requests through GET routes. net/http drops the body.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			r.Method = http.MethodGet
		}
		next.ServeHTTP(w, r)
	})
}
