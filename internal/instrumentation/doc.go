// Package instrumentation provides OpenTelemetry metrics for the vicrego
// MCP server.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests and MCP tool invocations
//   - Counters for the request pipeline (auth failures, rate-limit
//     denials, snapshot refresh attempts)
//   - Prometheus metrics export via /metrics endpoint on a dedicated port
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// Pipeline Metrics:
//   - auth_failures_total: Counter of rejected bearer tokens by error code
//   - rate_limit_denied_total: Counter of rate-limited requests
//   - snapshot_refresh_total: Counter of fee snapshot refresh attempts by source and status
//
// # Configuration
//
// Configuration is environment driven; see DefaultConfig. Set
// INSTRUMENTATION_ENABLED=false to disable metrics entirely, or
// METRICS_EXPORTER=stdout for local debugging.
package instrumentation
