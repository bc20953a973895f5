package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSMiddleware restricts cross-origin browser access to the allow-list.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * 60 * 60,
	})
	return c.Handler
}
