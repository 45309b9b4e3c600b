package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vicrego/vicrego/internal/auth"
	"github.com/vicrego/vicrego/internal/instrumentation"
	"github.com/vicrego/vicrego/internal/logging"
	"github.com/vicrego/vicrego/internal/protocol"
	"github.com/vicrego/vicrego/internal/ratelimit"
	"github.com/vicrego/vicrego/internal/scrape"
	"github.com/vicrego/vicrego/internal/server"
	"github.com/vicrego/vicrego/internal/snapshot"
	"github.com/vicrego/vicrego/internal/tools/rego_tools"
)

// AuthConfig holds the OIDC bearer auth settings for the serve command.
type AuthConfig struct {
	Enabled          bool
	Issuer           string
	Audience         string
	ClientID         string
	JWKSURL          string
	AuthorizationURL string
	Algorithms       []string
	RequiredScope    string
}

// RateLimitConfig holds the sliding-window limiter settings.
type RateLimitConfig struct {
	MaxRequests   int
	WindowSeconds int
}

// SnapshotConfig holds fee snapshot storage and refresh settings.
type SnapshotConfig struct {
	Path        string
	Key         string
	RefreshDays int
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		httpAddr  string
		logLevel  string
		logFile   string
		authCfg   AuthConfig
		limitCfg  RateLimitConfig
		snapCfg   SnapshotConfig
		metricCfg MetricsConfig
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server exposing the Victorian registration fee estimator
tools (normalize_vehicle_request, get_fee_snapshot,
estimate_registration_cost, explain_assumptions) on POST /mcp.

Authentication:
  Disabled by default. With --auth-enabled the server validates RS256
  bearer tokens against the configured OIDC issuer. The issuer,
  audience, client id and JWKS URL are then required (flags or the
  OIDC_* env vars).

Snapshots:
  Without --snapshot-path the server serves the built-in fee snapshot
  and re-scrapes VicRoads/TAC/SRO pages on demand without persisting
  the result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadServeEnvVars(cmd, &httpAddr, &authCfg, &limitCfg, &snapCfg, &metricCfg)
			return runServe(httpAddr, logLevel, logFile, authCfg, limitCfg, snapCfg, metricCfg)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http-addr", server.DefaultAddr, "HTTP server address. Can also use HTTP_ADDR env var.")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Log to a rotated file instead of stderr")

	cmd.Flags().BoolVar(&authCfg.Enabled, "auth-enabled", false, "Require OIDC bearer tokens on POST /mcp. Can also use AUTH_ENABLED env var.")
	cmd.Flags().StringVar(&authCfg.Issuer, "oidc-issuer", "", "OIDC issuer URL. Can also use OIDC_ISSUER env var.")
	cmd.Flags().StringVar(&authCfg.Audience, "oidc-audience", "", "Expected token audience. Can also use OIDC_AUDIENCE env var.")
	cmd.Flags().StringVar(&authCfg.ClientID, "oidc-client-id", "", "OAuth client id advertised in auth challenges. Can also use OIDC_CLIENT_ID env var.")
	cmd.Flags().StringVar(&authCfg.JWKSURL, "oidc-jwks-url", "", "JWKS endpoint for token signing keys. Can also use OIDC_JWKS_URL env var.")
	cmd.Flags().StringVar(&authCfg.AuthorizationURL, "oidc-authorization-url", "", "Authorization URL advertised in auth challenges. Defaults to <issuer>/authorize.")
	cmd.Flags().StringSliceVar(&authCfg.Algorithms, "oidc-algorithms", []string{auth.AlgorithmRS256}, "Accepted token signing algorithms. Only RS256 is supported.")
	cmd.Flags().StringVar(&authCfg.RequiredScope, "oidc-required-scope", "", "Scope every token must carry. Can also use OIDC_REQUIRED_SCOPE env var.")

	cmd.Flags().IntVar(&limitCfg.MaxRequests, "rate-limit-max-requests", 60, "Requests admitted per identity per window. Can also use RATE_LIMIT_MAX_REQUESTS env var.")
	cmd.Flags().IntVar(&limitCfg.WindowSeconds, "rate-limit-window-seconds", 60, "Sliding window length in seconds. Can also use RATE_LIMIT_WINDOW_SECONDS env var.")

	cmd.Flags().StringVar(&snapCfg.Path, "snapshot-path", "", "Directory for the LevelDB fee snapshot store. Empty disables persistence. Can also use SNAPSHOT_PATH env var.")
	cmd.Flags().StringVar(&snapCfg.Key, "snapshot-key", snapshot.DefaultKey, "Store key holding the latest snapshot")
	cmd.Flags().IntVar(&snapCfg.RefreshDays, "snapshot-refresh-days", 30, "Background snapshot refresh frequency in days. 0 disables.")

	cmd.Flags().BoolVar(&metricCfg.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricCfg.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadServeEnvVars fills in settings from environment variables.
// Environment variables only apply when the flag was not explicitly set.
func loadServeEnvVars(cmd *cobra.Command, httpAddr *string, authCfg *AuthConfig, limitCfg *RateLimitConfig, snapCfg *SnapshotConfig, metricCfg *MetricsConfig) {
	stringEnv := func(flag, env string, target *string) {
		if !cmd.Flags().Changed(flag) {
			if value := os.Getenv(env); value != "" {
				*target = value
			}
		}
	}
	boolEnv := func(flag, env string, target *bool) {
		if !cmd.Flags().Changed(flag) {
			if value := os.Getenv(env); value != "" {
				if parsed, err := strconv.ParseBool(value); err == nil {
					*target = parsed
				}
			}
		}
	}
	intEnv := func(flag, env string, target *int) {
		if !cmd.Flags().Changed(flag) {
			if value := os.Getenv(env); value != "" {
				if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
					*target = parsed
				}
			}
		}
	}

	stringEnv("http-addr", "HTTP_ADDR", httpAddr)

	boolEnv("auth-enabled", "AUTH_ENABLED", &authCfg.Enabled)
	stringEnv("oidc-issuer", "OIDC_ISSUER", &authCfg.Issuer)
	stringEnv("oidc-audience", "OIDC_AUDIENCE", &authCfg.Audience)
	stringEnv("oidc-client-id", "OIDC_CLIENT_ID", &authCfg.ClientID)
	stringEnv("oidc-jwks-url", "OIDC_JWKS_URL", &authCfg.JWKSURL)
	stringEnv("oidc-authorization-url", "OIDC_AUTHORIZATION_URL", &authCfg.AuthorizationURL)
	stringEnv("oidc-required-scope", "OIDC_REQUIRED_SCOPE", &authCfg.RequiredScope)
	if !cmd.Flags().Changed("oidc-algorithms") {
		if algorithms := parseCommaSeparatedList(os.Getenv("OIDC_ALGORITHMS")); algorithms != nil {
			authCfg.Algorithms = algorithms
		}
	}

	intEnv("rate-limit-max-requests", "RATE_LIMIT_MAX_REQUESTS", &limitCfg.MaxRequests)
	intEnv("rate-limit-window-seconds", "RATE_LIMIT_WINDOW_SECONDS", &limitCfg.WindowSeconds)

	stringEnv("snapshot-path", "SNAPSHOT_PATH", &snapCfg.Path)
	stringEnv("snapshot-key", "SNAPSHOT_KEY", &snapCfg.Key)
	intEnv("snapshot-refresh-days", "SNAPSHOT_REFRESH_DAYS", &snapCfg.RefreshDays)

	boolEnv("metrics-enabled", "METRICS_ENABLED", &metricCfg.Enabled)
	stringEnv("metrics-addr", "METRICS_ADDR", &metricCfg.Addr)
}

func runServe(httpAddr, logLevel, logFile string, authCfg AuthConfig, limitCfg RateLimitConfig, snapCfg SnapshotConfig, metricCfg MetricsConfig) error {
	logger := logging.Setup(logging.Options{Level: logLevel, File: logFile})

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	// Start metrics server if enabled
	var metricsServer *server.MetricsServer
	if metricCfg.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricCfg.Addr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			logger.Info("metrics server started", "addr", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	// Snapshot storage and importer
	var store snapshot.Store = snapshot.NopStore{}
	if snapCfg.Path != "" {
		levelStore, err := snapshot.OpenLevelDBStore(snapCfg.Path, snapCfg.Key)
		if err != nil {
			return fmt.Errorf("failed to open snapshot store: %w", err)
		}
		defer func() {
			if err := levelStore.Close(); err != nil {
				logger.Error("snapshot store close failed", logging.Err(err))
			}
		}()
		store = levelStore
	}
	importer := scrape.NewImporter(nil, logger)
	snapshots := snapshot.NewService(store, importer, logger)

	// Authenticator (nil disables bearer auth)
	var authenticator *auth.Authenticator
	if authCfg.Enabled {
		authenticator, err = auth.New(auth.Config{
			Issuer:           authCfg.Issuer,
			Audience:         authCfg.Audience,
			ClientID:         authCfg.ClientID,
			JWKSURL:          authCfg.JWKSURL,
			AuthorizationURL: authCfg.AuthorizationURL,
			Algorithms:       authCfg.Algorithms,
			RequiredScope:    authCfg.RequiredScope,
		}, nil)
		if err != nil {
			return err
		}
		logger.Info("bearer auth enabled", "issuer", authCfg.Issuer)
	} else {
		logger.Warn("bearer auth disabled, POST /mcp is unauthenticated")
	}

	// Rate limiter with background eviction of idle identities
	limiter := ratelimit.New(limitCfg.MaxRequests, time.Duration(limitCfg.WindowSeconds)*time.Second)
	go limiter.Run(shutdownCtx, ratelimit.DefaultSweepInterval)

	// Tool registry
	registry := protocol.NewRegistry()
	rego_tools.RegisterRegoTools(registry, snapshots)

	serverContext, err := server.NewServerContext(shutdownCtx, server.ServerContextConfig{
		Authenticator: authenticator,
		Limiter:       limiter,
		Snapshots:     snapshots,
		Registry:      registry,
		Logger:        logger,
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		snapshots.SetRecorder(provider.Metrics())
	}
	defer func() {
		if metricsServer != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := metricsServer.Shutdown(stopCtx); err != nil {
				logger.Error("metrics server shutdown failed", logging.Err(err))
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("server context shutdown failed", logging.Err(err))
		}
	}()

	if snapCfg.RefreshDays > 0 {
		go refreshSnapshotLoop(shutdownCtx, snapshots, provider.Metrics(), logger, time.Duration(snapCfg.RefreshDays)*24*time.Hour)
	}

	httpServer := server.New(serverContext)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer stopCancel()
		if err := httpServer.Shutdown(stopCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}

// refreshSnapshotLoop re-imports the fee schedule on a fixed cadence so a
// long-running server does not serve a stale snapshot forever.
func refreshSnapshotLoop(ctx context.Context, snapshots *snapshot.Service, metrics *instrumentation.Metrics, logger *slog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := snapshots.Refresh(ctx); err != nil {
				logger.Warn("scheduled snapshot refresh failed",
					logging.Operation("snapshot_refresh"), logging.Err(err))
				if metrics != nil {
					metrics.RecordSnapshotRefresh(ctx, "scheduled", instrumentation.StatusError)
				}
				continue
			}
			logger.Info("scheduled snapshot refresh succeeded",
				logging.Operation("snapshot_refresh"))
			if metrics != nil {
				metrics.RecordSnapshotRefresh(ctx, "scheduled", instrumentation.StatusSuccess)
			}
		}
	}
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty or contains only whitespace/commas.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
