package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"tg-chats-collector/internal/testutil"
)

func TestCORS_Origins(t *testing.T) {
	tests := []struct {
		name           string
		allowedOrigins []string
		requestOrigin  string
		shouldAllow    bool
	}{
		{"allowed origin", []string{"http://localhost:3000", "http://example.com"}, "http://localhost:3000", true},
		{"allowed second origin", []string{"http://localhost:3000", "http://example.com"}, "http://example.com", true},
		{"wildcard", []string{"*"}, "http://anything.dev", true},
		{"disallowed origin", []string{"http://localhost:3000"}, "http://malicious.com", false},
		{"no origin header", []string{"*"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := CORS(tt.allowedOrigins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/chats/last", nil)
			if tt.requestOrigin != "" {
				req.Header.Set("Origin", tt.requestOrigin)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.True(t, called, "regular requests pass through")
			testutil.AssertStatusCode(t, w, http.StatusOK)
			if tt.shouldAllow {
				testutil.AssertHeader(t, w, "Access-Control-Allow-Origin", tt.requestOrigin)
				testutil.AssertHeaderContains(t, w, "Access-Control-Allow-Headers", APIKeyHeader)
				testutil.AssertHeader(t, w, "Vary", "Origin")
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestCORS_PreflightRequest(t *testing.T) {
	for _, origin := range []string{"http://localhost:3000", "http://malicious.com"} {
		t.Run(origin, func(t *testing.T) {
			called := false
			handler := CORS([]string{"http://localhost:3000"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat-history/search", nil)
			req.Header.Set("Origin", origin)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			testutil.AssertStatusCode(t, w, http.StatusNoContent)
			assert.False(t, called, "preflight must not reach the handler")
		})
	}
}

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"http://localhost:3000", []string{"http://localhost:3000"}},
		{"http://a.dev, http://b.dev ,http://c.dev", []string{"http://a.dev", "http://b.dev", "http://c.dev"}},
		{"*", []string{"*"}},
		{"", nil},
		{" , ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOrigins(tt.in))
		})
	}
}
