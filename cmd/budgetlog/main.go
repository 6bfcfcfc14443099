package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"budgetlog/internal/backend"
	"budgetlog/internal/cli"
	"budgetlog/internal/config"
	"budgetlog/internal/core"
	apphttp "budgetlog/internal/http"
	applog "budgetlog/internal/log"
	"budgetlog/internal/metrics"
	"budgetlog/internal/middleware/ratelimit"
	"budgetlog/internal/services"
	"budgetlog/internal/storage"
	"budgetlog/internal/taxonomy"
)

func main() {
	cli.LoadEnvFile()

	// Config is validated before the level is known; bootstrap at info.
	logger := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	ctx, stop := cli.SignalContext(context.Background(), logger)
	err := run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// run wires the backend, tracker and HTTP server and blocks until ctx is
// cancelled or the server fails.
func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid backend configuration: %w", err)
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend)).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("initialize %s backend: %w", cfg.DataBackend, err)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err.Error())
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	trackerLogger := logger.WithComponent(applog.ComponentTracker)
	var notifier services.Notifier = services.NewLogNotifier(trackerLogger)
	if result.Notifier != nil {
		notifier = services.MultiNotifier{notifier, result.Notifier}
	}

	policy := core.SignPermissive
	if cfg.StrictAmountSign {
		policy = core.SignStrict
	}

	vocab, err := taxonomy.FromFile(cfg.CategoriesFile)
	if err != nil {
		logger.Warn("Using default categories", applog.FieldError, err.Error(), "path", cfg.CategoriesFile)
	}

	tracker, err := services.NewTracker(services.Deps{
		Archive:    storage.NewArchive(result.KV, cfg.StorageKey, logger.WithComponent(applog.ComponentStorage)),
		Notifier:   notifier,
		Vocabulary: vocab,
		Metrics:    m,
		Logger:     trackerLogger,
	}, services.Config{
		Currency:   cfg.CurrencySymbol,
		SeedDemo:   cfg.SeedDemo,
		SignPolicy: policy,
	})
	if err != nil {
		return fmt.Errorf("create tracker: %w", err)
	}
	if err := tracker.Start(ctx); err != nil {
		return fmt.Errorf("start tracker: %w", err)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Tracker:   tracker,
		Logger:    logger.WithComponent(applog.ComponentHTTP),
		Metrics:   m,
		Gatherer:  reg,
		RateLimit: ratelimit.DefaultConfig(),
	})
	if err != nil {
		return fmt.Errorf("create HTTP server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budgetlog server",
			"port", cfg.Port,
			applog.FieldBackend, cfg.DataBackend,
			applog.FieldStorageKey, cfg.StorageKey,
			"amqp_enabled", result.Notifier != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("Shutting down server", applog.FieldOperation, applog.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
