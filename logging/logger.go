package logging

import (
	"io"
	"log"
	"os"
)

// Logger wraps a standard logger with a verbose switch. Infof lines are only
// written when verbose is on; warnings and errors always are.
type Logger struct {
	*log.Logger
	verbose bool
}

// New creates a Logger writing to w (stderr when nil).
func New(w io.Writer, verbose bool) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{
		Logger:  log.New(w, "", log.LstdFlags),
		verbose: verbose,
	}
}

// Discard returns a Logger that drops everything. Handy in tests.
func Discard() *Logger {
	return &Logger{Logger: log.New(io.Discard, "", 0)}
}

// Verbose reports whether Infof output is enabled.
func (l *Logger) Verbose() bool {
	return l != nil && l.verbose
}

// Infof logs an informational message when verbose is on.
func (l *Logger) Infof(format string, args ...any) {
	if !l.Verbose() {
		return
	}
	l.Printf("[INFO] "+format, args...)
}

// Warnf logs a warning.
func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.Printf("[WARN] "+format, args...)
}

// Errorf logs an error without exiting.
func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	l.Printf("[ERROR] "+format, args...)
}
