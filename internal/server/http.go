// Package server runs the optional HTTP endpoint that exposes metrics and a
// health check while a long-running command such as `finfront mcp` is up.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dgellow/finfront/internal/log"
	"github.com/dgellow/finfront/internal/metrics"
)

// HTTPServer manages the HTTP server lifecycle
type HTTPServer struct {
	server *http.Server
}

// NewHandler routes /metrics and /healthz
func NewHandler(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	mux.Handle("GET /healthz", NewHealthHandler())
	return ChainMiddleware(mux,
		NewLoggerMiddleware("http"),
		NewRecoverMiddleware("http"),
	)
}

// NewHTTPServer creates a server for m on addr
func NewHTTPServer(m *metrics.Metrics, addr string) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(m),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// HealthHandler handles health check requests
type HealthHandler struct{}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP implements http.Handler for health checks
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Start serves until Stop is called
func (h *HTTPServer) Start() error {
	log.LogInfoWithFields("http", "Metrics server starting", map[string]any{
		"addr": h.server.Addr,
	})

	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	if err := h.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.LogDebugWithFields("http", "Metrics server stopped", map[string]any{
		"addr": h.server.Addr,
	})
	return nil
}
