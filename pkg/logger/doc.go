// Package logger provides a slog.Logger factory with structured output and
// automatic context attribute extraction.
//
// All components of this module log through *slog.Logger instances produced
// here: JSON output by default for log aggregation, text for development.
// Context extractors inject request-scoped values such as correlation IDs
// into every record without explicit threading:
//
//	log := logger.New(
//		logger.WithService("hookrelay"),
//		logger.WithContextValue("correlation_id", ctxkey.CorrelationID),
//	)
//	logger.SetAsDefault(log)
//
// The attr helpers (Error, CorrelationID, Destination, Attempt, ErrorKind)
// keep attribute keys consistent across the delivery, metrics, and fan-out
// packages.
package logger
