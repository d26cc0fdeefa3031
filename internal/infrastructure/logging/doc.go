// Package logging provides structured logging for the Gray Logic dialogue service.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the service.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Per-component child loggers via Component
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	store.SetLogger(logger.Component("catalog"))
//	logger.Info("listening", "port", 8090)
//
// # Security
//
// Never log the Home Assistant token or MQTT credentials.
package logging
