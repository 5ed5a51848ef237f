package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"tg-chats-collector/internal/observability"
)

// RequestIDHeader echoes the request id back to the client.
const RequestIDHeader = "X-Request-Id"

// RequestID copies the id set by chi's RequestID middleware into the
// logging context and the response headers. It must run after it.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chimiddleware.GetReqID(r.Context())
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(observability.WithRequestID(r.Context(), id)))
		})
	}
}
