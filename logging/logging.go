// Package logging provides the process-wide leveled logger: info output
// gated behind an explicit opt-in, trace output selected per subsystem.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

type Logger struct {
	info  *log.Logger
	debug *log.Logger
	trace *log.Logger
	warn  *log.Logger
	plain *log.Logger

	mu          sync.Mutex
	infoEnabled bool
	traced      map[string]bool
}

func NewLogger(stdout io.Writer, stderr io.Writer) *Logger {
	out := log.NewWithOptions(stdout, log.Options{})
	return &Logger{
		info:   out.WithPrefix("info"),
		debug:  out.WithPrefix("debug"),
		trace:  out.WithPrefix("trace"),
		warn:   log.NewWithOptions(stderr, log.Options{Prefix: "warn"}),
		plain:  log.NewWithOptions(stderr, log.Options{}),
		traced: make(map[string]bool),
	}
}

func (l *Logger) Printf(format string, args ...interface{}) {
	l.info.Printf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.mu.Lock()
	enabled := l.infoEnabled
	l.mu.Unlock()
	if enabled {
		l.info.Printf(format, args...)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.warn.Printf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.plain.Printf(format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.debug.Printf(format, args...)
}

// Trace emits only for subsystems selected by EnableTrace; the special
// name "all" selects every subsystem.
func (l *Logger) Trace(subsystem string, format string, args ...interface{}) {
	l.mu.Lock()
	selected := l.traced[subsystem] || l.traced["all"]
	l.mu.Unlock()
	if selected {
		l.trace.Printf(subsystem+": "+format, args...)
	}
}

func (l *Logger) EnableInfo() {
	l.mu.Lock()
	l.infoEnabled = true
	l.mu.Unlock()
}

func (l *Logger) EnableTrace(traces string) {
	l.mu.Lock()
	l.traced = make(map[string]bool)
	for _, subsystem := range strings.Split(traces, ",") {
		l.traced[subsystem] = true
	}
	l.mu.Unlock()
}

var defaultLogger = NewLogger(os.Stdout, os.Stderr)

func Default() *Logger {
	return defaultLogger
}

func Printf(format string, args ...interface{}) { defaultLogger.Printf(format, args...) }
func Info(format string, args ...interface{})   { defaultLogger.Info(format, args...) }
func Warn(format string, args ...interface{})   { defaultLogger.Warn(format, args...) }
func Error(format string, args ...interface{})  { defaultLogger.Error(format, args...) }
func Debug(format string, args ...interface{})  { defaultLogger.Debug(format, args...) }
func EnableInfo()                               { defaultLogger.EnableInfo() }
func EnableTrace(traces string)                 { defaultLogger.EnableTrace(traces) }
func Trace(subsystem string, format string, args ...interface{}) {
	defaultLogger.Trace(subsystem, format, args...)
}
