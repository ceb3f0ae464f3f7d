// Package logging provides the structured log sink used by every other
// package in this module. There is no global logger: each DataSource (and
// the connections it produces) carries its own instance, matching the
// per-connector handler model required of the core.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface every internal package depends on.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithFields(fields Fields) Logger
}

// Fields is a structured attachment for a single log entry.
type Fields map[string]interface{}

// Config controls where and how verbosely a Logger writes.
type Config struct {
	Level  string // debug|info|warn|error; defaults to info
	Output io.Writer
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New builds a Logger backed by logrus, formatted the way the rest of the
// codebase's operational logs are: "[time] [LEVEL] (caller) message".
func New(cfg Config) Logger {
	l := logrus.New()
	l.SetFormatter(&callerFormatter{timestampFormat: "15:04:05 MST 2006/01/02"})
	l.SetLevel(parseLevel(cfg.Level))
	if cfg.Output != nil {
		l.SetOutput(cfg.Output)
	} else {
		l.SetOutput(os.Stderr)
	}
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

// Noop returns a Logger that discards everything, for tests and callers
// that don't supply a LogHandler.
func Noop() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusLogger) WithFields(fields Fields) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// callerFormatter renders entries as "[time] [LEVL] (file:func:line) msg",
// annotated with any structured fields the entry carries.
type callerFormatter struct {
	timestampFormat string
}

func (f *callerFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.timestampFormat)

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	var fieldsSuffix string
	if len(entry.Data) > 0 {
		parts := make([]string, 0, len(entry.Data))
		for k, v := range entry.Data {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
		fieldsSuffix = " " + strings.Join(parts, " ")
	}

	return []byte(fmt.Sprintf("[%s] [%s] (%s) %s%s\n",
		timestamp, level, caller(), entry.Message, fieldsSuffix)), nil
}

func caller() string {
	for i := 2; i < 20; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.Contains(file, "/logrus/") || strings.Contains(file, "sirupsen") {
			continue
		}
		fn := runtime.FuncForPC(pc).Name()
		return fmt.Sprintf("%s:%s:%d", filepath.Base(file), fn, line)
	}
	return "unknown:unknown:0"
}
