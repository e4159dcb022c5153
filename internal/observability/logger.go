// Package observability holds the logging and metrics hooks used by the
// services that publish read-only views. Everything here is optional: the
// defaults are no-ops.
package observability

import (
	"context"
	"log/slog"
)

// Logger is the structured logging surface consumed by services. Key/value
// pairs follow the log/slog convention.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// NoopLogger discards everything.
type NoopLogger struct{}

func (NoopLogger) Debug(string, ...any) {}
func (NoopLogger) Info(string, ...any)  {}
func (NoopLogger) Warn(string, ...any)  {}
func (NoopLogger) Error(string, ...any) {}

// SlogLogger adapts a *slog.Logger.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l; a nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return SlogLogger{l: l}
}

func (s SlogLogger) Debug(msg string, kv ...any) { s.l.Log(context.Background(), slog.LevelDebug, msg, kv...) }
func (s SlogLogger) Info(msg string, kv ...any)  { s.l.Log(context.Background(), slog.LevelInfo, msg, kv...) }
func (s SlogLogger) Warn(msg string, kv ...any)  { s.l.Log(context.Background(), slog.LevelWarn, msg, kv...) }
func (s SlogLogger) Error(msg string, kv ...any) { s.l.Log(context.Background(), slog.LevelError, msg, kv...) }
