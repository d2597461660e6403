package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// CORS allows the browser front end to call the API. "*" or an empty list
// allows any origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", TraceIDHeader},
		ExposedHeaders: []string{TraceIDHeader},
		MaxAge:         300,
	}
	if len(origins) == 0 || (len(origins) == 1 && strings.TrimSpace(origins[0]) == "*") {
		options.AllowedOrigins = []string{"*"}
	} else {
		options.AllowCredentials = true
	}
	return cors.New(options).Handler
}
