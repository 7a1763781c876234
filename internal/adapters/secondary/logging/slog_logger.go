package logging

import (
	"context"
	"log/slog"

	"github.com/btps-org/btps-core/internal/core/ports"
)

// SlogLogger implements ports.Logger over the standard library's
// structured logger, with RedactorHandler always interposed so key
// material never leaks into a sink.
type SlogLogger struct {
	logger *slog.Logger
	attrs  []ports.LogAttribute
}

// New wraps handler with redaction and returns a ports.Logger.
func New(handler slog.Handler) *SlogLogger {
	return &SlogLogger{logger: slog.New(NewRedactorHandler(handler))}
}

func (l *SlogLogger) Debug(ctx context.Context, msg string, attrs ...ports.LogAttribute) {
	l.log(ctx, slog.LevelDebug, msg, attrs...)
}

func (l *SlogLogger) Info(ctx context.Context, msg string, attrs ...ports.LogAttribute) {
	l.log(ctx, slog.LevelInfo, msg, attrs...)
}

func (l *SlogLogger) Warn(ctx context.Context, msg string, attrs ...ports.LogAttribute) {
	l.log(ctx, slog.LevelWarn, msg, attrs...)
}

func (l *SlogLogger) Error(ctx context.Context, msg string, attrs ...ports.LogAttribute) {
	l.log(ctx, slog.LevelError, msg, attrs...)
}

// WithAttrs returns a derived logger carrying attrs on every future
// call, without mutating l.
func (l *SlogLogger) WithAttrs(attrs ...ports.LogAttribute) ports.Logger {
	merged := make([]ports.LogAttribute, len(l.attrs)+len(attrs))
	copy(merged, l.attrs)
	copy(merged[len(l.attrs):], attrs)
	return &SlogLogger{logger: l.logger, attrs: merged}
}

func (l *SlogLogger) log(ctx context.Context, level slog.Level, msg string, attrs ...ports.LogAttribute) {
	all := make([]slog.Attr, 0, len(l.attrs)+len(attrs))
	for _, a := range l.attrs {
		all = append(all, slog.Any(a.Key, a.Value))
	}
	for _, a := range attrs {
		all = append(all, slog.Any(a.Key, a.Value))
	}
	l.logger.LogAttrs(ctx, level, msg, all...)
}
