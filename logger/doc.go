// Package logger provides structured logging for mainkit using zerolog.
//
// It supports JSON and console output, level configuration, a process-wide
// default logger, and component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("bootstrap")
//	log.Info("container initialized", logger.Fields(logger.FieldContainerID, id))
package logger
