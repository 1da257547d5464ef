// Package klog is the kernel's structured logging singleton.
//
// It mirrors the original kernel-logger crate: a single process-global
// logger with one hook seat that the console installs so that every log
// record is also pushed into the on-screen ring buffer.
package klog

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Hook receives every formatted log message together with its level, in
// the order records are emitted. The line carries no level prefix or
// colour escape; those are added only by the logrus formatter. The console is the only caller
// that ever installs one.
type Hook func(level logrus.Level, line string)

var (
	mu     sync.Mutex
	logger = logrus.New()
	hook   Hook
)

func init() {
	logger.SetFormatter(&levelPrefixFormatter{})
}

// SetHook installs the console's line-sink. Installing a second hook
// replaces the first; the scheduler and allocator only ever call through
// the package-level logging functions below, never touch the hook
// directly.
func SetHook(h Hook) {
	mu.Lock()
	defer mu.Unlock()
	hook = h
}

// Tracef, Infof, Warnf and Errorf format and emit a record at the given
// level, both through logrus (for host-side visibility while testing) and
// through the installed hook (for the on-screen console).
func Tracef(format string, args ...any) { emit(logrus.TraceLevel, format, args...) }
func Infof(format string, args ...any)  { emit(logrus.InfoLevel, format, args...) }
func Warnf(format string, args ...any)  { emit(logrus.WarnLevel, format, args...) }
func Errorf(format string, args ...any) { emit(logrus.ErrorLevel, format, args...) }

func emit(level logrus.Level, format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	logger.Log(level, line)

	mu.Lock()
	h := hook
	mu.Unlock()
	if h != nil {
		h(level, line)
	}
}

// levelColor maps a logrus level to the ANSI escape the original
// kernel-logger crate prefixes every record with.
func levelColor(level logrus.Level) string {
	switch level {
	case logrus.TraceLevel:
		return "\x1b[90m" // bright black
	case logrus.InfoLevel:
		return "\x1b[36m" // cyan
	case logrus.WarnLevel:
		return "\x1b[33m" // yellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return "\x1b[31m" // red
	default:
		return "\x1b[0m"
	}
}

const colorReset = "\x1b[0m"

type levelPrefixFormatter struct{}

func (levelPrefixFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	line := fmt.Sprintf("%s[%s]%s %s\n", levelColor(entry.Level), entry.Level.String(), colorReset, entry.Message)
	return []byte(line), nil
}
