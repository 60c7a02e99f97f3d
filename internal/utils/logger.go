package utils

import (
	"log"
	"os"
	"sync"
	"sync/atomic"
)

// Logger writes leveled messages for the store, provider and CLI layers.
// Everything goes to stderr so command output on stdout stays
// machine-readable. Debug lines are gated by verbose mode.
type Logger struct {
	verbose atomic.Bool
	out     *log.Logger
}

var (
	logger     *Logger
	loggerOnce sync.Once
)

// GetLogger returns the process-wide logger.
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		logger = &Logger{out: log.New(os.Stderr, "", 0)}
	})
	return logger
}

// SetVerbose toggles debug output. Verbose mode also timestamps every line.
func (l *Logger) SetVerbose(on bool) {
	l.verbose.Store(on)
	if on {
		l.out.SetFlags(log.Ldate | log.Ltime)
	} else {
		l.out.SetFlags(0)
	}
}

func (l *Logger) IsVerbose() bool {
	return l.verbose.Load()
}

func (l *Logger) logf(level, format string, args ...any) {
	l.out.Printf("["+level+"] "+format, args...)
}

// Debugf logs only when verbose mode is on.
func Debugf(format string, args ...any) {
	l := GetLogger()
	if l.IsVerbose() {
		l.logf("DEBUG", format, args...)
	}
}

func Infof(format string, args ...any) {
	GetLogger().logf("INFO", format, args...)
}

func Warnf(format string, args ...any) {
	GetLogger().logf("WARN", format, args...)
}

func Errorf(format string, args ...any) {
	GetLogger().logf("ERROR", format, args...)
}

// SetVerboseMode toggles debug output globally.
func SetVerboseMode(on bool) {
	GetLogger().SetVerbose(on)
}

// LogOperation brackets a unit of work with debug entry and exit lines.
// The wrapped error passes through unchanged.
func LogOperation(name string, fn func() error) error {
	Debugf("%s: start", name)
	if err := fn(); err != nil {
		Debugf("%s: failed: %v", name, err)
		return err
	}
	Debugf("%s: done", name)
	return nil
}
