// Package logging provides structured logging for the sync backend.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Fields carries structured context attached to a log entry.
type Fields = logrus.Fields

var (
	// global logger instance
	global *logrus.Logger
	once   sync.Once
)

// Init initializes the global logger. Output is JSON, one entry per line.
func Init(out io.Writer, level string) {
	once.Do(func() {
		global = newLogger(out, level)
	})
}

// Get returns the global logger instance.
func Get() *logrus.Logger {
	if global == nil {
		Init(os.Stdout, "info")
	}
	return global
}

func newLogger(out io.Writer, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(ParseLevel(level))
	return l
}

// ParseLevel maps a config-file level string to a logrus level.
// Unknown values fall back to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Convenience functions using the global logger

func Debug(message string, fields ...Fields) {
	entry(fields...).Debug(message)
}

func Info(message string, fields ...Fields) {
	entry(fields...).Info(message)
}

func Warn(message string, fields ...Fields) {
	entry(fields...).Warn(message)
}

func Error(message string, err error, fields ...Fields) {
	e := entry(fields...)
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(message)
}

// entry merges the variadic field maps into a single entry.
func entry(fields ...Fields) *logrus.Entry {
	e := logrus.NewEntry(Get())
	for _, f := range fields {
		e = e.WithFields(f)
	}
	return e
}
