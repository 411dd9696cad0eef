package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// DefaultAllowedOrigin is the production web client.
const DefaultAllowedOrigin = "https://vikal-new-production.up.railway.app"

// CORS builds the cross-origin policy for the browser client. The API only
// serves GET and POST, and tokens travel in the Authorization header, not
// cookies. The admin key header is not allowed cross-origin.
func CORS(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{DefaultAllowedOrigin}
	}

	return cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, "Retry-After"},
		MaxAge:         600,
	}
}
