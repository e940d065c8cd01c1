// Package logger configures the process-wide zerolog setup. Components
// receive their logger by value through constructors; the context helpers
// exist for code paths that only have a context to carry it in.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type contextKey string

// loggerKey is the context key the logger travels under.
const loggerKey contextKey = "logger"

// New creates the default structured logger: console output with timestamps.
func New() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

// NewWithWriter creates a logger writing JSON lines to w. Tests use it to
// capture output.
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// WithContext stores the logger in the context.
func WithContext(ctx context.Context, log zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext retrieves the logger stored by WithContext. The boolean
// reports whether one was present, so callers can fall back to their own.
func FromContext(ctx context.Context) (zerolog.Logger, bool) {
	log, ok := ctx.Value(loggerKey).(zerolog.Logger)
	return log, ok
}
