package api

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/Resinat/subdecode/internal/metrics"
	"github.com/Resinat/subdecode/internal/service"
)

// Server wraps the HTTP server and mux for the subdecode API.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
}

// ServerConfig carries everything NewServer wires into routes.
type ServerConfig struct {
	ListenAddress   string
	Port            int
	AdminToken      string
	APIMaxBodyBytes int64

	System        service.SystemService
	Subscriptions *service.SubscriptionService
	Metrics       *metrics.Collector
	Logger        logrus.FieldLogger
}

// NewServer creates a new API server wired with all routes.
func NewServer(cfg ServerConfig) *Server {
	mux := http.NewServeMux()

	// Public (no auth)
	mux.Handle("GET /healthz", HandleHealthz())

	// Authenticated routes
	authed := http.NewServeMux()
	if cfg.System != nil {
		authed.Handle("GET /api/v1/system/info", HandleSystemInfo(cfg.System))
	}
	if cfg.Subscriptions != nil {
		authed.Handle("POST /api/v1/parse", HandleParse(cfg.Subscriptions))
		authed.Handle("POST /api/v1/parse/raw", HandleParseRaw(cfg.Subscriptions))
	}
	if cfg.Metrics != nil {
		authed.Handle("GET /api/v1/metrics", HandleMetrics(cfg.Metrics))
	}
	authed.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "no route for "+r.Method+" "+r.URL.Path)
	})

	limitedAuthed := RequestBodyLimitMiddleware(cfg.APIMaxBodyBytes, authed)
	mux.Handle("/api/", AuthMiddleware(cfg.AdminToken, limitedAuthed))

	handler := RequestIDMiddleware(cfg.Logger, mux)
	srv := &http.Server{
		Addr:    net.JoinHostPort(cfg.ListenAddress, strconv.Itoa(cfg.Port)),
		Handler: handler,
	}

	return &Server{
		httpServer: srv,
		handler:    handler,
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe starts the HTTP server. It blocks until the server stops.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on l. It blocks until the server stops.
func (s *Server) Serve(l net.Listener) error {
	return s.httpServer.Serve(l)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
