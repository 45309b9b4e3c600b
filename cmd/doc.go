// Package cmd implements the command-line interface for vicrego.
//
// This package provides the following commands:
//   - serve: Start the MCP server exposing the fee estimator tools
//   - refresh: Fetch the latest VIC fee schedule and persist a snapshot
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
