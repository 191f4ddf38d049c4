// Package obslog provides the process-wide structured logger injected into
// every component by the integration layer (internal/sim), replacing
// scattered log.Printf calls with leveled, field-carrying log lines.
package obslog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is a thin alias so callers don't import logrus directly.
type Logger = logrus.Logger

// Fields is a thin alias for structured log fields.
type Fields = logrus.Fields

// New builds the logger used for a simulation run. level is one of
// logrus's parseable level strings ("debug", "info", "warn", "error");
// an unparseable value falls back to "info".
func New(level string) *Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// Noop returns a logger with output discarded, for tests that don't want
// log noise but still need a non-nil *Logger.
func Noop() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}
