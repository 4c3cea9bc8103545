// Package logging provides structured logging for SimLock.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same format, level and default fields (service, version).
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
//	logger.Info("starting device host", "port", 8888)
//	logger.Error("failed to connect", "error", err)
//
// # Security
//
// Attributes keyed pin, password or token are replaced with [REDACTED]
// before output. Prefer not logging them at all.
package logging
