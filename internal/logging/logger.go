// Package logging wires log/slog for the service and carries request-scoped loggers.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// ParseLevel maps a textual level to slog.Level. Unknown values fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler returns a JSON handler in prod and a text handler otherwise.
func NewHandler(w io.Writer, mode, level string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}
	if mode == "prod" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Setup installs the process-wide default logger.
func Setup(mode, level string) *slog.Logger {
	logger := slog.New(NewHandler(os.Stdout, mode, level))
	slog.SetDefault(logger)
	return logger
}

type loggerKey struct{}

// FromContext extracts the logger from context, falling back to slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}

// ToContext adds the logger to context.
func ToContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// NewRequestID returns a fresh request identifier.
func NewRequestID() string {
	return uuid.NewString()
}

// WithRequestID derives a logger tagged with request_id and stores it in ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = NewRequestID()
	}
	return ToContext(ctx, FromContext(ctx).With("request_id", requestID))
}
