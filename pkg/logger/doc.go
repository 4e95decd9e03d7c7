// Package logger provides the structured logging interface used across chatdump.
//
// It wraps zerolog behind a small Logger interface with field chaining:
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("run_id", runID)
//	log.WithFields(map[string]interface{}{"target": "alice"}).Info("Job completed")
//
// Console output uses coloured four-letter levels. When a log file is
// configured, JSON lines are appended to it as well. Tests can use
// NewTestLogger to capture entries or NewNopLogger to discard them.
package logger
