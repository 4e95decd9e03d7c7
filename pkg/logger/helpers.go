package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogFloodWait records a server-mandated pause for a target
func LogFloodWait(l Logger, platform, target string, attempt int, wait time.Duration) {
	l.WithFields(map[string]interface{}{
		"platform": platform,
		"target":   target,
		"attempt":  attempt,
		"wait":     wait,
		"action":   "rate_limited",
	}).Warn("Rate limited, backing off")
}

// LogPageFetched records one page of history
func LogPageFetched(l Logger, target string, requested, received int, before string) {
	l.DebugWithFields("Fetched history page", map[string]interface{}{
		"target":    target,
		"requested": requested,
		"received":  received,
		"before":    before,
	})
}

// LogArtifactWritten records a finished output file
func LogArtifactWritten(l Logger, path string, records int, size string) {
	l.InfoWithFields("Artifact written", map[string]interface{}{
		"path":    path,
		"records": records,
		"size":    size,
	})
}

// LogBatchStart records the start of a batch run
func LogBatchStart(l Logger, platform string, targets int, fields map[string]interface{}) {
	merged := map[string]interface{}{
		"platform": platform,
		"targets":  targets,
	}
	for k, v := range fields {
		merged[k] = v
	}
	l.InfoWithFields("Batch started", merged)
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
