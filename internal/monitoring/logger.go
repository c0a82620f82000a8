// Package monitoring holds the diagnostic logging sinks shared by the
// fitting packages.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Verbosity levels understood by Logger.
const (
	Quiet   = 0
	Warning = 1
	Debug   = 2
)

// Logger is a verbosity-gated sink handed to components that need to report
// per-item diagnostics. A nil *Logger is valid and logs nothing.
type Logger struct {
	// Prefix is prepended to every line, e.g. "[Fitter] ".
	Prefix    string
	Verbosity int
	// Sink overrides the package Logf when set.
	Sink func(format string, v ...interface{})
}

// NewLogger returns a Logger writing through the package Logf.
func NewLogger(prefix string, verbosity int) *Logger {
	return &Logger{Prefix: prefix, Verbosity: verbosity}
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level int) bool {
	return l != nil && l.Verbosity >= level
}

// Infof always writes, regardless of verbosity.
func (l *Logger) Infof(format string, v ...interface{}) {
	if l == nil {
		return
	}
	l.write(format, v...)
}

// Warnf writes when verbosity is at least Warning.
func (l *Logger) Warnf(format string, v ...interface{}) {
	if !l.Enabled(Warning) {
		return
	}
	l.write("WARNING: "+format, v...)
}

// Debugf writes when verbosity is at least Debug.
func (l *Logger) Debugf(format string, v ...interface{}) {
	if !l.Enabled(Debug) {
		return
	}
	l.write("DEBUG: "+format, v...)
}

func (l *Logger) write(format string, v ...interface{}) {
	sink := l.Sink
	if sink == nil {
		sink = Logf
	}
	sink(l.Prefix+format, v...)
}
