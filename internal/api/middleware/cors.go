package middleware

import (
	"github.com/go-chi/cors"
)

// NewCORS creates a CORS middleware for the given origins. The request ID
// header is exposed so the frontend can quote it in bug reports.
func NewCORS(allowedOrigins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-Id",
		},
		ExposedHeaders:   []string{"Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
