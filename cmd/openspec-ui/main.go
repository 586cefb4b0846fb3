package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mevdschee/openspec-ui/internal/config"
	"github.com/mevdschee/openspec-ui/internal/metrics"
	"github.com/mevdschee/openspec-ui/internal/server"
	"github.com/mevdschee/openspec-ui/internal/supervisor"
	"github.com/mevdschee/openspec-ui/pkg/changebus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// newLogger builds the process logger. Quiet mode still reports errors so fatal startup
// failures are never silent.
func newLogger(quiet bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	switch {
	case quiet:
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
		logger, err = cfg.Build()
	case os.Getenv("OPENSPEC_UI_DEBUG") != "":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

// configPath picks the -config flag, then OPENSPEC_UI_CONFIG, then the default file name.
func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("OPENSPEC_UI_CONFIG"); env != "" {
		return env
	}
	return config.DefaultFile
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	configFlag := flag.String("config", "", "Path to config file (default $OPENSPEC_UI_CONFIG or "+config.DefaultFile+")")
	quiet := flag.Bool("quiet", false, "Only log errors")
	flag.Parse()

	logger := newLogger(*quiet)
	defer logger.Sync()

	path, err := filepath.Abs(configPath(*configFlag))
	if err != nil {
		logger.Fatal("failed to resolve config path", zap.Error(err))
	}

	manager := config.NewManager(path, logger)
	cfg, err := manager.Load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Fatal("config file not found, create one with a \"sources\" list",
				zap.String("path", path))
		}
		logger.Fatal("failed to load config", zap.String("path", path), zap.Error(err))
	}
	sources, err := manager.LoadSources()
	if err != nil {
		logger.Fatal("failed to load sources", zap.Error(err))
	}

	logger.Info("openspec-ui starting", zap.String("config", path), zap.Int("sources", len(sources)))
	valid := 0
	for _, src := range sources {
		if src.Valid {
			valid++
		}
		logger.Info("source",
			zap.String("name", src.Name),
			zap.String("path", src.Path),
			zap.Bool("valid", src.Valid))
	}

	port := cfg.Port
	if env := os.Getenv("PORT"); env != "" {
		p, err := strconv.ParseUint(env, 10, 16)
		if err != nil {
			logger.Fatal("invalid PORT", zap.String("port", env), zap.Error(err))
		}
		port = uint16(p)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	m.SetSources(valid, len(sources)-valid)

	bus := changebus.New(
		changebus.WithPublishHook(m.RecordNotification),
		changebus.WithSubscriberHook(m.SetSubscribers),
	)
	registry := supervisor.NewSourceRegistry(sources)
	sup := supervisor.New(registry, bus, supervisor.Options{Logger: logger, Metrics: m})
	reloader := supervisor.NewConfigReloader(manager, sup, logger)

	srv := server.New(server.Options{
		Config:      manager,
		Registry:    registry,
		Supervisor:  sup,
		Bus:         bus,
		Metrics:     m,
		Gatherer:    reg,
		Logger:      logger,
		FrontendDir: os.Getenv("FRONTEND_DIR"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sup.Run(gctx)
	})
	g.Go(func() error {
		reloader.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return srv.Start(port)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("goodbye")
}
