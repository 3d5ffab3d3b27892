package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/stevemurr/poi-editor-server/config"
	"github.com/stevemurr/poi-editor-server/handler"
	"github.com/stevemurr/poi-editor-server/logging"
	"github.com/stevemurr/poi-editor-server/notify"
	"github.com/stevemurr/poi-editor-server/poi"
	"github.com/stevemurr/poi-editor-server/spatial"
	"github.com/stevemurr/poi-editor-server/store"
)

const (
	serviceName    = "poi-editor-server"
	serviceVersion = "0.1.0"
)

type Options struct {
	Logger logging.Options `group:"Logger options"`

	Host           string  `long:"host"                 env:"HOST"                 description:"Address to listen on"                      default:"0.0.0.0"`
	Port           int     `short:"p" long:"port"       env:"PORT"                 description:"Port to listen on"                         default:"8080"`
	ConfigFile     string  `short:"c" long:"config"     env:"CONFIG_FILE"          description:"Path to YAML configuration file"`
	DataDir        string  `long:"data-dir"             env:"DATA_DIR"             description:"Directory for local stores"                default:"./data"`
	Store          string  `long:"store"                env:"STORE_BACKEND"        description:"Persistence backend" choice:"json" choice:"sqlite" choice:"memory" choice:"postgres" choice:"redis" default:"json"`
	PostgresDSN    string  `long:"postgres-dsn"         env:"POSTGRES_DSN"         description:"PostgreSQL connection string"`
	RedisAddr      string  `long:"redis-addr"           env:"REDIS_ADDR"           description:"Redis address"                             default:"localhost:6379"`
	RedisPassword  string  `long:"redis-password"       env:"REDIS_PASSWORD"       description:"Redis password"`
	RedisDB        int     `long:"redis-db"             env:"REDIS_DB"             description:"Redis database"`
	Multiplier     float64 `long:"tolerance-multiplier" env:"TOLERANCE_MULTIPLIER" description:"Click tolerance multiplier (0 uses the config file value)"`
	PreferNearest  bool    `long:"prefer-nearest"       env:"PREFER_NEAREST"       description:"Resolve ambiguous clicks to the nearest point"`
	AllowedOrigins string  `long:"allowed-origins"      env:"ALLOWED_ORIGINS"      description:"Comma separated CORS origins"              default:"*"`
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()
	ctx, logger := logging.NewLogger(context.Background(), serviceName, serviceVersion)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, opts Options, logger zerolog.Logger) error {
	cfg := config.Default()
	if opts.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigFile); err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
	}
	if opts.Multiplier > 0 {
		cfg.Map.ToleranceMultiplier = opts.Multiplier
	}

	s, err := store.New(store.Config{
		Backend:       opts.Store,
		DataDir:       opts.DataDir,
		PostgresDSN:   opts.PostgresDSN,
		RedisAddr:     opts.RedisAddr,
		RedisPassword: opts.RedisPassword,
		RedisDB:       opts.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("create store (backend=%s): %w", opts.Store, err)
	}
	if c, ok := s.(io.Closer); ok {
		defer c.Close()
	}

	m := poi.NewManager(ctx, s,
		poi.WithLogger(logger),
		poi.WithMatcher(spatial.Matcher{
			Multiplier:    cfg.Map.ToleranceMultiplier,
			PreferNearest: opts.PreferNearest,
		}),
	)

	sinks, err := notify.FromConfig(cfg.Notifications)
	if err != nil {
		return fmt.Errorf("create notification sinks: %w", err)
	}
	defer notify.Close(sinks)
	if len(sinks) > 0 {
		d := notify.NewDispatcher(logger, 0, sinks...)
		defer d.Attach(m)()
		go d.Run(ctx)
		defer d.Stop()
	}

	h := handler.New(m, handler.Options{
		ServiceName:    serviceName,
		AllowedOrigins: strings.Split(opts.AllowedOrigins, ","),
		Map:            cfg.Map,
		Logger:         &logger,
	})

	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info().
		Str("addr", addr).
		Str("store", opts.Store).
		Str("data_dir", opts.DataDir).
		Int("points", m.GetPointCount()).
		Int("sinks", len(sinks)).
		Msg("POI editor server started")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
