package core

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is the logging surface every system receives through its constructor.
// *log.Logger from charmbracelet satisfies it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type LogConfig struct {
	Level  string `toml:"level"`
	Prefix string `toml:"prefix"`
	// Caller adds file:line of the log call to each entry.
	Caller bool `toml:"caller"`
}

// NewLogger builds the engine logger. When w is nil the logger writes to stderr.
func NewLogger(cfg LogConfig, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "Engine 🏎️ "
	}
	l := log.NewWithOptions(w, log.Options{
		ReportCaller:    cfg.Caller,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          prefix,
	})
	l.SetLevel(ParseLevel(cfg.Level))
	return l
}

// ParseLevel maps a config string to a log level, falling back to info.
func ParseLevel(level string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// NopLogger discards everything.
func NopLogger() Logger {
	return nopLogger{}
}

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
