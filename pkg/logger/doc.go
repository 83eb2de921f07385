// Package logger provides the structured logging interface used across the crawler.
//
// It wraps zerolog. Console output is pretty-printed (coloured only on a
// terminal); when a log file is configured every entry is also appended there.
//
//	log, err := logger.New(&cfg.Logging)
//	log.WithField("stage", "discover").Info("Run started")
//	logger.LogItem(log, "download", "women/dresses", url, "succeeded", 4, nil)
//
// TestLogger captures entries in memory for assertions in tests.
package logger
