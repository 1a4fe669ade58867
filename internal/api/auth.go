package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"net/http"
	"strings"
)

// RequireAdminToken guards operator endpoints with a bearer token.
// An empty token disables the check.
func RequireAdminToken(token string) func(http.Handler) http.Handler {
	want := sha256.Sum256([]byte(token))

	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			sum := sha256.Sum256([]byte(got))
			if !ok || !hmac.Equal(sum[:], want[:]) {
				RecordConnectionRejected("auth")
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
				writeError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
