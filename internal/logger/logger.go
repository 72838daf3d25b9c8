// ABOUTME: Leveled logging for protocol trace output
// ABOUTME: DEBUG is gated on verbose; INFO/WARN/ERROR always emit

package logger

import (
	"io"
	"log"
	"os"
	"sync/atomic"
)

// Logger writes leveled, optionally prefixed log lines. A zero prefix
// logger is what commands use; the protocol client tags each instance
// with its device address via WithPrefix.
type Logger struct {
	std     *log.Logger
	prefix  string
	verbose *atomic.Bool
}

// New creates a logger writing to w. Pass nil to use stderr.
func New(w io.Writer, verbose bool) *Logger {
	if w == nil {
		w = os.Stderr
	}
	l := &Logger{
		std:     log.New(w, "", log.LstdFlags),
		verbose: &atomic.Bool{},
	}
	l.verbose.Store(verbose)
	return l
}

// WithPrefix returns a logger that tags every line with p. The verbose
// setting is shared with the parent.
func (l *Logger) WithPrefix(p string) *Logger {
	return &Logger{std: l.std, prefix: p, verbose: l.verbose}
}

// SetVerbose enables or disables DEBUG output.
func (l *Logger) SetVerbose(v bool) {
	l.verbose.Store(v)
}

// IsVerbose returns the current verbose setting.
func (l *Logger) IsVerbose() bool {
	return l.verbose.Load()
}

func (l *Logger) logf(level, format string, args ...interface{}) {
	if l.prefix != "" {
		l.std.Printf("[%s] [%s] "+format, append([]interface{}{level, l.prefix}, args...)...)
		return
	}
	l.std.Printf("[%s] "+format, append([]interface{}{level}, args...)...)
}

// Debugf logs at DEBUG level (only shown when verbose).
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.verbose.Load() {
		l.logf("DEBUG", format, args...)
	}
}

// Infof logs at INFO level.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf("INFO", format, args...)
}

// Warnf logs at WARN level.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logf("WARN", format, args...)
}

// Errorf logs at ERROR level.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf("ERROR", format, args...)
}

var std = New(os.Stderr, false)

// Default returns the process-wide logger.
func Default() *Logger { return std }

// SetVerbose adjusts the process-wide logger.
func SetVerbose(v bool) { std.SetVerbose(v) }
