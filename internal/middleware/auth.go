package middleware

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyHeader carries the client API key.
const APIKeyHeader = "X-API-Key"

// APIKey rejects requests whose X-API-Key does not match the bcrypt hash.
// An empty hash disables the check.
func APIKey(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Missing API key")
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
