// Package logger defines the logging interface used across the harness.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is a leveled, structured logger. Arguments after msg are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NewDefault returns a text logger writing to stderr. Debug messages are only
// emitted when debug is true.
func NewDefault(debug bool) Logger {
	return New(os.Stderr, debug)
}

// New returns a text logger writing to w.
func New(w io.Writer, debug bool) Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything.
func Discard() Logger {
	return discard{}
}

type discard struct{}

func (discard) Debug(string, ...any) {}
func (discard) Info(string, ...any)  {}
func (discard) Warn(string, ...any)  {}
func (discard) Error(string, ...any) {}

// FromSlog adapts an existing *slog.Logger.
func FromSlog(l *slog.Logger) Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// compile-time check that slog satisfies Logger
var _ Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// enabled reports whether l would emit at level. Only slog loggers are inspected.
func enabled(l Logger, level slog.Level) bool {
	if sl, ok := l.(*slog.Logger); ok {
		return sl.Enabled(context.Background(), level)
	}
	_, isDiscard := l.(discard)
	return !isDiscard
}

// DebugEnabled reports whether debug messages reach the output.
func DebugEnabled(l Logger) bool {
	return enabled(l, slog.LevelDebug)
}
