// Package server provides the HTTP surface for the vic-rego-estimator
// MCP service.
//
// # Key Components
//
// ServerContext carries the collaborators request handling depends on
// (authenticator, rate limiter, snapshot service, tool registry and
// dispatcher). It is constructed once at startup and threaded through
// every handler so tests can substitute collaborators.
//
// Server assembles the chi route tree with a fixed middleware pipeline:
//   - audit logging: assigns or reuses X-Request-ID, echoes it back,
//     and emits one structured completion line per request
//   - bearer auth: POST /mcp only; failures carry a WWW-Authenticate
//     challenge and never reach later stages
//   - rate limiting: POST /mcp only, after auth so the verified subject
//     keys the limiter; denials carry Retry-After
//   - dispatch: decodes the JSON-RPC body and hands it to the protocol
//     dispatcher
//
// HealthChecker serves the /healthz and /readyz probes, and
// MetricsServer exposes Prometheus metrics on a dedicated port.
package server
