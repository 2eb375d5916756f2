package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS lets the configured storefront origins call the API with cookies and
// bearer tokens. A "*" entry opens the API to any origin but then drops
// credentials, which browsers refuse to combine with a wildcard.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(origins))
	wildcard := false
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			wildcard = true
		default:
			allowed = append(allowed, o)
		}
	}
	if wildcard {
		allowed = []string{"*"}
	}

	return cors.New(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, replayHeader, "Retry-After"},
		AllowCredentials: !wildcard,
		MaxAge:           600,
	}).Handler
}
