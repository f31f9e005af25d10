// Package logging builds the engine's standard logger. Every component takes
// a *logrus.Logger so tests can swap in a silent one.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr at the given level. Unknown level
// names fall back to info.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// Discard returns a logger that drops everything, for tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
