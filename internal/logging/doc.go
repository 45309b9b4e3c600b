// Package logging provides structured logging utilities for the vicrego
// service.
//
// This package centralizes logging patterns to ensure consistent,
// structured logging throughout the codebase using the standard
// library's slog package, with optional rotated file output.
//
// # Key Features
//
//   - Structured logging with slog (JSON handler)
//   - Consistent attribute naming across the codebase
//   - Token sanitization so credentials never reach log output
//   - Rotated file output via lumberjack
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "snapshot_refresh")
//	logger.Info("snapshot saved",
//	    logging.Status(logging.StatusSuccess))
//
// Attach request-scoped context:
//
//	logger := logging.WithRequestID(slog.Default(), requestID)
//	logger.Info("request completed",
//	    logging.Subject(subject),
//	    logging.Err(err))
//
// # Security Considerations
//
// Bearer tokens are never logged directly; SanitizeToken reduces them
// to a length indicator before they reach any log attribute.
package logging
