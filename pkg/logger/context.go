package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/gaze-network/batchsale/pkg/logger/slogx"
)

type loggerKey struct{}

// FromContext returns the logger attached to ctx, or the top-level logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return logger.With()
}

// NewContext returns a new context with logger attached.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, l)
}

// WithContext returns a new context whose logger carries the given attributes.
func WithContext(ctx context.Context, args ...any) context.Context {
	return NewContext(ctx, FromContext(ctx).With(args...))
}

func DebugContext(ctx context.Context, msg string, args ...any) {
	log(ctx, FromContext(ctx), slog.LevelDebug, msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	log(ctx, FromContext(ctx), slog.LevelInfo, msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	log(ctx, FromContext(ctx), slog.LevelWarn, msg, args...)
}

// ErrorContext logs at [slog.LevelError] with err attached.
func ErrorContext(ctx context.Context, msg string, err error, args ...any) {
	log(ctx, FromContext(ctx), slog.LevelError, msg, append(args, slogx.Error(err))...)
}

// IncidentContext logs at [LevelCritical] tagged with the given event name.
// Incidents need an operator: the service will not resolve them by itself.
func IncidentContext(ctx context.Context, event string, msg string, args ...any) {
	log(ctx, FromContext(ctx), LevelCritical, msg, append(args, slogx.Event(event))...)
}

// PanicContext logs at [LevelPanic] and then panics.
func PanicContext(ctx context.Context, msg string, args ...any) {
	log(ctx, FromContext(ctx), LevelPanic, msg, args...)
	panic(msg)
}

// FatalContext logs at [LevelFatal] and then calls [os.Exit](1).
func FatalContext(ctx context.Context, msg string, args ...any) {
	log(ctx, FromContext(ctx), LevelFatal, msg, args...)
	os.Exit(1)
}
