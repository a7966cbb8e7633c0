// Package logging provides the structured logger cmd/qvlverify uses,
// trimmed to what a CLI needs from the service-style logrus wrapper the
// rest of the retrieval pack builds (run-scoped fields, JSON or text
// output, no HTTP/DB-specific helpers).
package logging

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with a run-id field every entry carries.
type Logger struct {
	*logrus.Logger
	runID string
}

// New builds a Logger at the given level ("debug", "info", "warn",
// "error") and format ("json" or "text"), tagging every entry with runID.
func New(level, format, runID string) *Logger {
	logger := logrus.New()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})
	}
	logger.SetOutput(os.Stderr)

	return &Logger{Logger: logger, runID: runID}
}

// Entry returns a logrus.Entry pre-populated with the run-id field.
func (l *Logger) Entry() *logrus.Entry {
	return l.WithField("run_id", l.runID)
}

// WithQuote returns an entry tagged with the run-id and the quote file
// path under verification.
func (l *Logger) WithQuote(path string) *logrus.Entry {
	return l.Entry().WithField("quote", path)
}
