package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogItem records the outcome of one work item in a crawl stage
func LogItem(l Logger, stage, group, subgroup, outcome string, records int, err error) {
	entry := l.WithFields(map[string]interface{}{
		"stage":    stage,
		"group":    group,
		"subgroup": subgroup,
		"outcome":  outcome,
		"records":  records,
	})

	switch {
	case err != nil:
		entry.WithError(err).Warn("Work item failed")
	case outcome == "skipped":
		entry.Debug("Work item skipped")
	default:
		entry.Info("Work item done")
	}
}

// LogRequest logs one page or asset fetch
func LogRequest(l Logger, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"url":         url,
		"status_code": statusCode,
		"duration":    duration,
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("Request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("Request client error", fields)
	default:
		l.DebugWithFields("Request completed", fields)
	}
}

// LogRateLimit logs a back-off caused by a rate-limit response
func LogRateLimit(l Logger, url string, wait time.Duration) {
	l.WithFields(map[string]interface{}{
		"url":    url,
		"wait":   wait,
		"action": "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	entry := l.WithField("component", component)
	if len(settings) > 0 {
		entry = entry.WithFields(settings)
	}
	entry.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a logger that discards everything
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
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
