// Package slogx builds the process logger and carries a request-scoped
// logger through context.
package slogx

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the handler and the attributes stamped on every record.
type Config struct {
	Service string
	Version string
	Env     string // "dev" adds source locations
	Level   string // see ParseLevel
	Format  string // "text" or "json" (default)

	Output io.Writer // stdout when nil
}

// New builds the logger described by cfg and makes it slog's default, so
// FromContext outside a request logs the same way.
func New(cfg Config) *slog.Logger {
	logger := slog.New(newHandler(cfg)).With(
		"service", cfg.Service,
		"version", cfg.Version,
		"env", cfg.Env,
	)
	slog.SetDefault(logger)
	return logger
}

func newHandler(cfg Config) slog.Handler {
	w := cfg.Output
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.Env == "dev",
	}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	var lvl slog.Level
	if s == "" || lvl.UnmarshalText([]byte(s)) != nil {
		return slog.LevelInfo
	}
	return lvl
}
