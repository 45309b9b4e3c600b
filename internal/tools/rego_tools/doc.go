// Package rego_tools registers the Victorian registration fee tools:
// request normalization, fee snapshot retrieval, cost estimation, and
// assumption explanation.
package rego_tools
