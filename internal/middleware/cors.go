package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows cross-origin requests from exactly one origin, with
// credentials. Preflights are always answered with 204 and never reach the
// router; a preflight from any other origin gets no CORS headers and the
// browser blocks the request.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{allowedOrigin},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:       []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials:     true,
		MaxAge:               600,
		OptionsSuccessStatus: http.StatusNoContent,
	})
	return c.Handler
}
