package core

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Logger wraps a *log.Logger so components receive an injected handle rather
// than reaching for a process-global singleton.
type Logger struct {
	*log.Logger
}

// NewLogger builds a Logger writing to w at the given level. A nil writer
// defaults to os.Stderr.
func NewLogger(w io.Writer, level log.Level, prefix string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	l := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          prefix,
	})
	l.SetLevel(level)
	return &Logger{l}
}

var (
	once      sync.Once
	singleton *Logger
)

// Default returns the process-wide convenience logger used only at the
// outermost CLI/server-wiring boundary; components below that boundary are
// handed a *Logger explicitly rather than calling these helpers.
func Default() *Logger {
	once.Do(func() {
		singleton = NewLogger(os.Stderr, log.InfoLevel, "scinthd ")
	})
	return singleton
}

func LogDebug(msg string, args ...interface{}) { Default().Debugf(msg, args...) }
func LogInfo(msg string, args ...interface{})  { Default().Infof(msg, args...) }
func LogWarn(msg string, args ...interface{})  { Default().Warnf(msg, args...) }
func LogError(msg string, args ...interface{}) { Default().Errorf(msg, args...) }
func LogFatal(msg string, args ...interface{}) { Default().Fatalf(msg, args...) }

// LevelFromVerbosity maps the --log_level 0..6 CLI flag (0=most verbose) onto
// charmbracelet/log levels.
func LevelFromVerbosity(v int) log.Level {
	switch {
	case v <= 1:
		return log.DebugLevel
	case v == 2:
		return log.InfoLevel
	case v == 3:
		return log.WarnLevel
	case v == 4:
		return log.ErrorLevel
	case v == 5:
		return log.FatalLevel
	default:
		return log.Level(100) // beyond FatalLevel: effectively silent
	}
}
