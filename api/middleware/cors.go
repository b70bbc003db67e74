package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// localOrigins are the dev servers of the workshop web app.
var localOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// CORS allows the configured browser origins, or the local dev servers when
// none are configured. Replay and rate-limit headers are exposed so the web
// client can react to them.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = localOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, "Idempotent-Replayed", "Retry-After", "Location"},
		AllowCredentials: true,
		MaxAge:           600,
	})
}
