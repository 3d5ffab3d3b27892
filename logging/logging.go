// Package logging configures zerolog for the service and carries loggers in
// contexts.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options is a go-flags group.
type Options struct {
	Level  string `long:"log-level"  env:"LOG_LEVEL"  description:"Log level" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
	Format string `long:"log-format" env:"LOG_FORMAT" description:"Log output format" choice:"json" choice:"console" default:"json"`
}

// Setup configures the global logger and returns it.
func (o Options) Setup() zerolog.Logger {
	return o.SetupWriter(os.Stderr)
}

// SetupWriter is Setup writing to w.
func (o Options) SetupWriter(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(o.Level))
	if err != nil || o.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if o.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return log.Logger
}

// NewLogger tags the global logger with service name and version and stores
// it in ctx.
func NewLogger(ctx context.Context, serviceName, serviceVersion string) (context.Context, zerolog.Logger) {
	logger := log.With().
		Str("service", strings.ToLower(serviceName)).
		Str("version", serviceVersion).
		Logger()
	return logger.WithContext(ctx), logger
}

// NewContextWithLogger attaches logger to ctx using zerolog's own context key,
// so zerolog.Ctx sees it as well.
func NewContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// GetLoggerFromContext falls back to the global logger when ctx carries none.
func GetLoggerFromContext(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return log.Logger
}
