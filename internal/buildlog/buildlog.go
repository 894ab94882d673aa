// Package buildlog wraps zerolog with the leveled, structured logging
// convention used throughout the pipeline stages, following the same
// zerolog-for-request-scoped-structured-logging pattern this codebase
// has used elsewhere.
package buildlog

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is the structured logger every pipeline stage receives.
type Logger struct {
	zl zerolog.Logger
}

// Options configures the root logger.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string
	// JSON selects JSON output; otherwise a human-readable console writer
	// is used.
	JSON bool
	Out  io.Writer
}

// New builds a root Logger from Options.
func New(opts Options) *Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if !opts.JSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	level := parseLevel(opts.Level)
	zl := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}

// With returns a child logger scoped to a pipeline stage.
func (l *Logger) With(stage string) *Logger {
	return &Logger{zl: l.zl.With().Str("stage", stage).Logger()}
}

func (l *Logger) Debug(msg string, fields ...interface{}) { l.event(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...interface{})  { l.event(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...interface{})  { l.event(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(err error, msg string, fields ...interface{}) {
	l.event(l.zl.Error().Err(err), msg, fields)
}

// event applies fields as alternating key/value pairs, matching the
// LogFields() convention used by configerr.ConfigError and friends.
func (l *Logger) event(e *zerolog.Event, msg string, fields []interface{}) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, fields[i+1])
	}
	e.Msg(msg)
}
