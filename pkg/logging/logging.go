// Package logging configures the logrus logger shared by the CLI, API and TUI
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a text logger writing to stderr at level. Unknown levels
// fall back to info.
func New(level string) *logrus.Logger {
	return NewWithOutput(level, os.Stderr)
}

// NewWithOutput is New with an explicit destination
func NewWithOutput(level string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// Discard returns a logger that drops everything, for the TUI where log
// lines would corrupt the screen
func Discard() *logrus.Logger {
	return NewWithOutput("panic", io.Discard)
}
