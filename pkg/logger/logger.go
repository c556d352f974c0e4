// Package logger configures the process-wide slog logger and carries
// request-scoped attributes such as the pipeline run ID through contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/config"
)

type attrsKey struct{}

// Setup installs the default logger. With file logging enabled, records are
// also written to a lumberjack-rotated file which the returned func closes.
func Setup(cfg config.LoggingConfig) (close func() error) {
	out, close := io.Writer(os.Stdout), func() error { return nil }
	if f := cfg.File; f.Enabled {
		rotated := &lumberjack.Logger{
			Filename:   f.Path,
			MaxSize:    f.MaxSizeMB,
			MaxBackups: f.MaxBackups,
			MaxAge:     f.MaxAgeDays,
			Compress:   f.Compress,
		}
		out, close = io.MultiWriter(os.Stdout, rotated), rotated.Close
	}
	slog.SetDefault(slog.New(newHandler(out, cfg.Level, cfg.Format)))
	return close
}

func newHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// parseLevel accepts slog's level names in any case; anything else is info.
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// With returns a context whose FromContext logger includes args.
func With(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(attrsKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(args))
	return context.WithValue(ctx, attrsKey{}, append(append(merged, prev...), args...))
}

// WithRunID tags every record logged through ctx with the pipeline run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return With(ctx, "run_id", runID)
}

// FromContext returns the default logger with the attributes stored in ctx.
func FromContext(ctx context.Context) *slog.Logger {
	if args, ok := ctx.Value(attrsKey{}).([]any); ok && len(args) > 0 {
		return slog.Default().With(args...)
	}
	return slog.Default()
}
