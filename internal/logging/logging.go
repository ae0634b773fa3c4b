// Package logging builds the zerolog logger shared by the services and adapters.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mmartinrusso/Orvit-sub062/internal/ctxutil"
)

// Config configures New.
type Config struct {
	Level   string // trace, debug, info, warn, error; unknown levels mean info
	Format  string // "json" or "console"
	Service string
	Output  io.Writer // defaults to stderr
}

// New returns a logger writing to cfg.Output.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if !strings.EqualFold(cfg.Format, "json") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: cfg.Output != nil}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	return ctx.Logger()
}

// WithRequest adds the request and caller IDs carried by ctx to logger.
func WithRequest(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctxutil.RequestFromContext(ctx) == "" && ctxutil.ActorFromContext(ctx) == "" {
		return logger
	}
	lc := logger.With()
	if id := ctxutil.RequestFromContext(ctx); id != "" {
		lc = lc.Str("request", id)
	}
	if actor := ctxutil.ActorFromContext(ctx); actor != "" {
		lc = lc.Str("caller", actor)
	}
	return lc.Logger()
}
