package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vicrego/vicrego/internal/logging"
)

const (
	// DefaultAddr is the default listen address for the MCP server.
	DefaultAddr = ":8080"

	// DefaultReadHeaderTimeout bounds how long a client may take to
	// send request headers.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds a full response write, including the
	// snapshot refresh a tool call may trigger.
	DefaultWriteTimeout = 60 * time.Second

	// DefaultIdleTimeout is how long keep-alive connections are held.
	DefaultIdleTimeout = 120 * time.Second
)

// Server is the HTTP server hosting the MCP endpoint, the service
// check and the health probes.
type Server struct {
	serverContext *ServerContext
	health        *HealthChecker
	httpServer    *http.Server
}

// New creates the HTTP server around a server context.
func New(sc *ServerContext) *Server {
	return &Server{
		serverContext: sc,
		health:        NewHealthChecker(sc),
	}
}

// HealthChecker returns the server's health checker so callers can
// flip readiness during startup and shutdown.
func (s *Server) HealthChecker() *HealthChecker {
	return s.health
}

// Handler assembles the route tree. The pipeline order is fixed: audit
// logging wraps everything; auth and rate limiting wrap only POST /mcp,
// with auth first so the limiter can key on the verified subject.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.serverContext.auditRequests)

	r.Get("/", s.serverContext.handleRoot)
	r.Method(http.MethodGet, "/healthz", s.health.LivenessHandler())
	r.Method(http.MethodGet, "/readyz", s.health.ReadinessHandler())
	r.Method(http.MethodGet, "/healthz/detailed", s.health.DetailedHealthHandler())

	r.With(
		s.serverContext.requireAuth,
		s.serverContext.enforceRateLimit,
	).Post("/mcp", s.serverContext.handleMCP)

	return r
}

// Start starts the HTTP server in a blocking manner. Call this in a
// goroutine if you need non-blocking operation.
func (s *Server) Start(addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	s.serverContext.Logger().Info("starting MCP server",
		logging.Service(ServiceName),
		"addr", addr,
		"auth_enabled", s.serverContext.AuthEnabled(),
	)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server. The readiness probe
// starts failing first so load balancers drain traffic.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer != nil {
		s.serverContext.Logger().Info("shutting down MCP server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
