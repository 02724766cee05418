package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	// Register routes with method-based patterns (Go 1.22+)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /sessions", h.CreateSession)
	mux.HandleFunc("GET /sessions", h.ListSessions)
	mux.HandleFunc("GET /sessions/{id}", h.GetSession)
	mux.HandleFunc("DELETE /sessions/{id}", h.DeleteSession)
	mux.HandleFunc("POST /sessions/{id}/source", h.UploadSource)
	mux.HandleFunc("POST /sessions/{id}/replace", h.UploadSource)
	mux.HandleFunc("PUT /sessions/{id}/trim", h.SetTrim)
	mux.HandleFunc("PUT /sessions/{id}/filter", h.SetFilter)
	mux.HandleFunc("PUT /sessions/{id}/adjust", h.SetAdjust)
	mux.HandleFunc("PUT /sessions/{id}/speed", h.SetSpeed)
	mux.HandleFunc("POST /sessions/{id}/export", h.StartExport)
	mux.HandleFunc("GET /sessions/{id}/thumbnails", h.Thumbnails)

	// Apply middleware chain
	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
