package shield

import (
	"crypto/subtle"
	"net/http"
	"slices"

	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/parsekit/kit"
)

// BasicAuth requires HTTP Basic credentials matching user and the bcrypt
// passwordHash. Requests whose path is listed in public pass through.
func BasicAuth(realm, user, passwordHash string, public ...string) func(http.Handler) http.Handler {
	challenge := `Basic realm="` + realm + `"`
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(public, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			u, p, ok := r.BasicAuth()
			if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
				bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(p)) != nil {
				kit.Logger(r.Context()).Warn("authentication failed", "user", u)
				w.Header().Set("WWW-Authenticate", challenge)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
