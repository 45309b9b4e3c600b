// Package protocol implements the JSON-RPC style MCP surface: request
// and response envelopes, the closed method set, the tool registry, and
// the error taxonomy mapping failures onto HTTP statuses and recovery
// hints.
package protocol
