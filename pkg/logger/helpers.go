package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogPage records one page of a paginated walk
func LogPage(l Logger, method string, offset, received, accumulated, total int) {
	l.DebugWithFields("page fetched", map[string]interface{}{
		"method":      method,
		"offset":      offset,
		"received":    received,
		"accumulated": accumulated,
		"total":       total,
	})
}

// LogOutcome records how a locate request for a profile ended
func LogOutcome(l Logger, requestID, profileID, status string, records int, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"request_id": requestID,
		"profile_id": profileID,
		"status":     status,
		"records":    records,
		"duration":   duration,
	}

	if err != nil {
		l.WithError(err).WarnWithFields("locate finished with upstream error", fields)
		return
	}
	l.InfoWithFields("locate finished", fields)
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	l.WithField("component", component).InfoWithFields("component started", settings)
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.InfoWithFields("component stopped", map[string]interface{}{
		"component": component,
		"reason":    reason,
	})
}

// OrDefault returns l, or the global logger when l is nil
func OrDefault(l Logger) Logger {
	if l == nil {
		return GetLogger()
	}
	return l
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
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
