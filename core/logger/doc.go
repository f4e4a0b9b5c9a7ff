// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments (development vs production)
// and integrates with the Fiber web framework.
//
// # Context Awareness
//
// WithRayID extracts the RayID from a Fiber context and attaches it to the log entry, so every line of
// a status request can be correlated. WithSource tags the lines of one poll scope, such as an audit
// source, so long-running pollers stay readable.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Encoding: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&cfg.Log)
//	log.Info("Agent started")
//
//	l := logger.WithSource(log, "audit", source.ID())
//	l.Warn("Audit source skipped", zap.Error(err))
package logger
