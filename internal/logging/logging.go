// Package logging provides the process-wide structured logger. It mirrors
// the teacher's logging package: logrus with a JSON formatter, a
// caller-annotating hook, and LOG_LEVEL-driven verbosity.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Log is the application-wide logger. Components should accept it (or the
// narrower Logger interface below) via constructor injection rather than
// reading this package variable directly, except at process entrypoints.
var Log = logrus.New()

type contextHook struct{}

func (contextHook) Levels() []logrus.Level { return logrus.AllLevels }

func packageFromFunc(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	if i := strings.Index(fn, "."); i >= 0 {
		return fn[:i]
	}
	return fn
}

func (contextHook) Fire(e *logrus.Entry) error {
	if e.Caller == nil {
		return nil
	}
	pkg := packageFromFunc(e.Caller.Function)
	file := fmt.Sprintf("%s:%d", filepath.Base(e.Caller.File), e.Caller.Line)
	e.Data["package"] = pkg
	e.Data["file"] = file
	return nil
}

func init() {
	Log.SetReportCaller(true)
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			function := filepath.Base(f.Function)
			file := fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
			return function, file
		},
	})
	Log.AddHook(contextHook{})

	logPath := os.Getenv("CORECTX_LOG_PATH")
	if logPath == "" {
		logPath = "corectx.log"
	}
	if logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
		Log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	} else {
		Log.SetOutput(os.Stdout)
	}

	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		levelStr = "info"
	}
	if lvl, err := logrus.ParseLevel(levelStr); err == nil {
		Log.SetLevel(lvl)
	} else {
		Log.SetLevel(logrus.InfoLevel)
	}
}

// Fields is a shorthand for logrus.Fields so call sites don't need to
// import logrus directly.
type Fields = logrus.Fields

// Logger is the narrow interface services depend on, so tests can inject a
// no-op or capturing implementation instead of the global logrus instance.
type Logger interface {
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)
	Debug(msg string, fields Fields)
}

// Default wraps the package-level Log as a Logger.
type Default struct{}

func (Default) Info(msg string, f Fields)  { Log.WithFields(f).Info(msg) }
func (Default) Warn(msg string, f Fields)  { Log.WithFields(f).Warn(msg) }
func (Default) Error(msg string, f Fields) { Log.WithFields(f).Error(msg) }
func (Default) Debug(msg string, f Fields) { Log.WithFields(f).Debug(msg) }

// Noop discards everything; useful in unit tests that don't want log noise.
type Noop struct{}

func (Noop) Info(string, Fields)  {}
func (Noop) Warn(string, Fields)  {}
func (Noop) Error(string, Fields) {}
func (Noop) Debug(string, Fields) {}
