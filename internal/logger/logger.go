// Package logger provides the leveled, structured logging facade used across
// the application. It is a thin wrapper over log/slog so packages depend on a
// small interface instead of a concrete logging backend.
package logger

import (
	"io"
	"log/slog"
	"time"
)

// LogLevel controls the minimum severity a logger emits.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// Field is a structured key/value pair attached to a log record.
type Field = slog.Attr

// Logger is the write-only logging sink consumed by all subsystems.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child logger that includes the given fields on every record.
	With(fields ...Field) Logger
}

// String returns a string field.
func String(key, value string) Field { return slog.String(key, value) }

// Int returns an int field.
func Int(key string, value int) Field { return slog.Int(key, value) }

// Int64 returns an int64 field.
func Int64(key string, value int64) Field { return slog.Int64(key, value) }

// Uint64 returns a uint64 field.
func Uint64(key string, value uint64) Field { return slog.Uint64(key, value) }

// Float64 returns a float64 field.
func Float64(key string, value float64) Field { return slog.Float64(key, value) }

// Bool returns a bool field.
func Bool(key string, value bool) Field { return slog.Bool(key, value) }

// Duration returns a duration field rendered as a human-readable string.
func Duration(key string, value time.Duration) Field {
	return slog.String(key, value.String())
}

// Any returns a field holding an arbitrary value.
func Any(key string, value any) Field { return slog.Any(key, value) }

// Error returns a field holding an error under the conventional "error" key.
// A nil error renders as an empty string.
func Error(err error) Field {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// slogLogger adapts a *slog.Logger to the Logger interface.
type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger creates a Logger writing JSON records to w at the given level.
// attrs, if non-nil, are included on every record (e.g. a service name).
func NewSlogLogger(w io.Writer, level LogLevel, attrs []Field) Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevel(level)})
	l := slog.New(h)
	if len(attrs) > 0 {
		l = l.With(attrsToAny(attrs)...)
	}
	return &slogLogger{l: l}
}

func slogLevel(level LogLevel) slog.Level {
	switch level {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func attrsToAny(fields []Field) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}

func (s *slogLogger) Debug(msg string, fields ...Field) { s.l.Debug(msg, attrsToAny(fields)...) }
func (s *slogLogger) Info(msg string, fields ...Field)  { s.l.Info(msg, attrsToAny(fields)...) }
func (s *slogLogger) Warn(msg string, fields ...Field)  { s.l.Warn(msg, attrsToAny(fields)...) }
func (s *slogLogger) Error(msg string, fields ...Field) { s.l.Error(msg, attrsToAny(fields)...) }

func (s *slogLogger) With(fields ...Field) Logger {
	return &slogLogger{l: s.l.With(attrsToAny(fields)...)}
}
