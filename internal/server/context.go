package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vicrego/vicrego/internal/auth"
	"github.com/vicrego/vicrego/internal/instrumentation"
	"github.com/vicrego/vicrego/internal/protocol"
	"github.com/vicrego/vicrego/internal/ratelimit"
	"github.com/vicrego/vicrego/internal/snapshot"
)

// ServiceName identifies this server in logs, health responses and
// initialize results.
const ServiceName = "vic-rego-estimator"

// ServerContextConfig carries the collaborators the request pipeline
// depends on. Authenticator may be nil, which disables bearer auth.
type ServerContextConfig struct {
	Authenticator *auth.Authenticator
	Limiter       *ratelimit.Limiter
	Snapshots     *snapshot.Service
	Registry      *protocol.Registry
	Logger        *slog.Logger
	Version       string
}

// ServerContext holds the dependencies for the MCP server. It is built
// once at startup and threaded through request handling so tests can
// substitute collaborators.
type ServerContext struct {
	ctx        context.Context
	cancel     context.CancelFunc
	auth       *auth.Authenticator
	limiter    *ratelimit.Limiter
	snapshots  *snapshot.Service
	registry   *protocol.Registry
	dispatcher *protocol.Dispatcher
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	version    string
	mu         sync.RWMutex
	shutdown   bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, config ServerContextConfig) (*ServerContext, error) {
	if config.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if config.Snapshots == nil {
		return nil, fmt.Errorf("snapshot service is required")
	}
	if config.Registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	dispatcher := protocol.NewDispatcher(
		config.Registry,
		protocol.ServerInfo{Name: ServiceName, Version: config.Version},
		config.Authenticator != nil,
	)

	return &ServerContext{
		ctx:        shutdownCtx,
		cancel:     cancel,
		auth:       config.Authenticator,
		limiter:    config.Limiter,
		snapshots:  config.Snapshots,
		registry:   config.Registry,
		dispatcher: dispatcher,
		logger:     logger,
		version:    config.Version,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Authenticator returns the configured authenticator, or nil when
// bearer auth is disabled.
func (sc *ServerContext) Authenticator() *auth.Authenticator {
	return sc.auth
}

// AuthEnabled reports whether bearer auth is configured.
func (sc *ServerContext) AuthEnabled() bool {
	return sc.auth != nil
}

// Limiter returns the rate limiter.
func (sc *ServerContext) Limiter() *ratelimit.Limiter {
	return sc.limiter
}

// Snapshots returns the fee snapshot service.
func (sc *ServerContext) Snapshots() *snapshot.Service {
	return sc.snapshots
}

// Dispatcher returns the protocol dispatcher.
func (sc *ServerContext) Dispatcher() *protocol.Dispatcher {
	return sc.dispatcher
}

// Registry returns the tool registry.
func (sc *ServerContext) Registry() *protocol.Registry {
	return sc.registry
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Version returns the server version string.
func (sc *ServerContext) Version() string {
	return sc.version
}

// Metrics returns the metrics recorder, or nil when instrumentation is
// disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetMetrics sets the metrics recorder for request instrumentation.
func (sc *ServerContext) SetMetrics(metrics *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = metrics
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
