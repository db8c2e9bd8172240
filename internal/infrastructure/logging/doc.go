// Package logging provides structured logging for Hearth Core.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
// The concrete *Logger satisfies the hub's core.Logger contract, so one
// logger constructed here flows through every component at startup.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting hub", "port", 8123)
//	logger.Error("failed to connect", "error", err)
//
// # Security
//
// Never log secrets, tokens, passwords, or API keys. The api_password in
// particular rides on every wire request; log request paths, never the
// query string or form body of authenticated calls.
package logging
