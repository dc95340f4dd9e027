package cog

import (
	"context"
	"log/slog"
)

// Logger is the diagnostic channel for the engine. Routing dead ends, edge
// overwrites, and direct-run misuse are reported here as warnings; they never
// abort execution. Fatal conditions travel as errors instead.
type Logger interface {
	Debug(ctx context.Context, msg string, keysAndValues ...any)
	Info(ctx context.Context, msg string, keysAndValues ...any)
	Warn(ctx context.Context, msg string, keysAndValues ...any)
	Error(ctx context.Context, msg string, keysAndValues ...any)
}

// NopLogger discards all records. It is the initial default logger.
type NopLogger struct{}

func (NopLogger) Debug(context.Context, string, ...any) {}
func (NopLogger) Info(context.Context, string, ...any)  {}
func (NopLogger) Warn(context.Context, string, ...any)  {}
func (NopLogger) Error(context.Context, string, ...any) {}

// NewSlogLogger adapts a *slog.Logger to the Logger interface. A nil argument
// uses slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) Debug(ctx context.Context, msg string, keysAndValues ...any) {
	s.l.DebugContext(ctx, msg, keysAndValues...)
}

func (s *slogLogger) Info(ctx context.Context, msg string, keysAndValues ...any) {
	s.l.InfoContext(ctx, msg, keysAndValues...)
}

func (s *slogLogger) Warn(ctx context.Context, msg string, keysAndValues ...any) {
	s.l.WarnContext(ctx, msg, keysAndValues...)
}

func (s *slogLogger) Error(ctx context.Context, msg string, keysAndValues ...any) {
	s.l.ErrorContext(ctx, msg, keysAndValues...)
}
