// Package logger provides structured logging for rxkit using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers. Streams obtain their logger from the named
// registry so an application can route stream diagnostics separately.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("stream")
//	log.Warn("backpressure applied", logger.Fields("stream", name, "capacity", 3))
package logger
