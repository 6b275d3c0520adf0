// Package logging configures log/slog for the registry.
//
// Loggers obtained through FromContext carry chi's request id, so every line
// written while serving a request (including import and extraction phases)
// can be correlated. Attributes named like credentials are masked before
// they reach the handler.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// masked replaces secret attribute values.
const masked = "********"

// secretKeys are attribute keys whose values are never written.
var secretKeys = map[string]bool{
	"password": true,
	"api_key":  true,
	"token":    true,
}

// Setup installs the default logger writing to stdout.
//
// Level: debug, info, warn, error (default info).
// Format: text or json (default text).
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: redact,
	}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] && a.Value.String() != "" {
		return slog.String(a.Key, masked)
	}
	return a
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// FromContext returns the default logger, tagged with the chi request id
// when ctx belongs to a request.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}

// WithFields returns a request-scoped logger carrying args.
//
//	logger := logging.WithFields(ctx, "flow", "custodians", "rows", n)
//	logger.Info("import executed", "imported", res.Imported)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}

// WithJob returns a logger scoped to a single extraction job run.
func WithJob(ctx context.Context, jobID int64, connector, mode string) *slog.Logger {
	return FromContext(ctx).With("job_id", jobID, "connector", connector, "mode", mode)
}
