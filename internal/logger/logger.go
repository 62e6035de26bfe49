// Package logger provides loggers for tests.
package logger

import (
	"fmt"
	"strings"
	"testing"

	"github.com/evalkit/relevancy-go/logger"
)

// failTestLogger logs through t and fails the test on Warn or Error.
type failTestLogger struct {
	t testing.TB
}

// NewFailTestLogger returns a logger that reports debug and info lines with t.Log
// and fails the test on any warning or error.
func NewFailTestLogger(t testing.TB) logger.Logger {
	return &failTestLogger{t: t}
}

func (l *failTestLogger) Debug(msg string, args ...any) {
	l.t.Helper()
	l.t.Log(format("DEBUG", msg, args))
}

func (l *failTestLogger) Info(msg string, args ...any) {
	l.t.Helper()
	l.t.Log(format("INFO", msg, args))
}

func (l *failTestLogger) Warn(msg string, args ...any) {
	l.t.Helper()
	l.t.Error(format("WARN", msg, args))
}

func (l *failTestLogger) Error(msg string, args ...any) {
	l.t.Helper()
	l.t.Error(format("ERROR", msg, args))
}

func format(level, msg string, args []any) string {
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	if len(args)%2 == 1 {
		fmt.Fprintf(&b, " %v", args[len(args)-1])
	}
	return b.String()
}
