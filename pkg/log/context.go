package log

import (
	"context"

	"github.com/rs/zerolog"
)

type runLoggerKey struct{}

// IntoContext attaches the logger used for the rest of a command run.
func IntoContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, runLoggerKey{}, logger)
}

// FromContext returns the run logger, or the process logger when ctx has none.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(runLoggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return L()
}

// WithUser tags every later event logged from ctx with the acting user's email.
func WithUser(ctx context.Context, email string) context.Context {
	if email == "" {
		return ctx
	}
	return IntoContext(ctx, FromContext(ctx).With().Str(FieldEmail, email).Logger())
}
