// Package logger configures the process-wide structured logger. All
// components log through log/slog; this package only decides handler,
// format, and level from configuration.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures the logger.
type Options struct {
	// Output defaults to os.Stdout.
	Output io.Writer

	// Level is one of "debug", "info", "warn", "error".
	Level string

	// Format is "json" (default) or "text".
	Format string

	// Service is attached to every record when set.
	Service string

	// Version is attached to every record when set.
	Version string
}

// New builds a slog.Logger from the options.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	}

	log := slog.New(handler)
	if opts.Service != "" {
		log = log.With(slog.String("service", opts.Service))
	}
	if opts.Version != "" {
		log = log.With(slog.String("version", opts.Version))
	}
	return log
}

// Setup builds the logger and installs it as the slog default, so
// libraries that fall back to slog.Default() share the same handler.
func Setup(opts Options) *slog.Logger {
	log := New(opts)
	slog.SetDefault(log)
	return log
}

// ParseLevel maps a config string to a slog level. Unknown strings mean
// info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

type ctxKey struct{}

// WithContext stores a logger on the context.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the context's logger, or the default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
