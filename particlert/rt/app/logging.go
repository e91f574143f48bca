package app

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

// DefaultLogger prints "[prefix] LEVEL: message". Debug and info go to
// stdout, warnings and errors to stderr. The prefix is the short run id.
type DefaultLogger struct {
	debug  atomic.Bool
	prefix string
	out    *log.Logger
	err    *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	l := &DefaultLogger{
		prefix: prefix,
		out:    log.New(os.Stdout, "", flags),
		err:    log.New(os.Stderr, "", flags),
	}
	l.debug.Store(debug)
	return l
}

func (l *DefaultLogger) DebugEnabled() bool    { return l.debug.Load() }
func (l *DefaultLogger) SetDebug(enabled bool) { l.debug.Store(enabled) }

func (l *DefaultLogger) write(lv level, format string, args ...any) {
	if lv == levelDebug && !l.DebugEnabled() {
		return
	}
	dst := l.out
	if lv >= levelWarn {
		dst = l.err
	}
	msg := fmt.Sprintf(format, args...)
	if l.prefix == "" {
		dst.Printf("%s: %s", levelNames[lv], msg)
		return
	}
	dst.Printf("[%s] %s: %s", l.prefix, levelNames[lv], msg)
}

func (l *DefaultLogger) Debugf(format string, args ...any) { l.write(levelDebug, format, args...) }
func (l *DefaultLogger) Infof(format string, args ...any)  { l.write(levelInfo, format, args...) }
func (l *DefaultLogger) Warnf(format string, args ...any)  { l.write(levelWarn, format, args...) }
func (l *DefaultLogger) Errorf(format string, args ...any) { l.write(levelError, format, args...) }

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
