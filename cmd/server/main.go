// Package main runs the analytics API together with the scheduled
// ingestion and batch analysis jobs.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"hypervisor-analytics/internal/api"
	"hypervisor-analytics/internal/app"
	"hypervisor-analytics/internal/cache"
	"hypervisor-analytics/internal/config"
	"hypervisor-analytics/internal/ingestion"
	"hypervisor-analytics/internal/logging"
	"hypervisor-analytics/internal/service"
)

func main() {
	configPath := flag.String("config", config.Env("CONFIG_PATH", ""), "Path to YAML config")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL and ClickHouse")
	analyzeOnStart := flag.Bool("analyze-on-start", true, "Run one batch analysis before serving")
	flag.Parse()

	logger, err := logging.New()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := app.OpenStores(ctx, cfg, *useMemory, logger)
	if err != nil {
		logger.Fatal("Failed to create stores", zap.Error(err))
	}
	defer cleanup()

	seeded, err := app.SeedHypervisors(ctx, stores.Hypervisors, cfg)
	if err != nil {
		logger.Fatal("Failed to register hypervisors", zap.Error(err))
	}
	logger.Info("Hypervisors registered", zap.Int("new", seeded), zap.Int("configured", len(cfg.Hypervisors)))

	var responseCache *cache.Cache
	if cfg.Redis.Addr != "" {
		responseCache, err = cache.New(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = responseCache.Close() }()
	}

	analytics := service.New(service.Options{
		Hypervisors: stores.Hypervisors,
		Periods:     stores.Periods,
		Ledger:      stores.Ledger,
		Rows:        stores.Rows,
		Shares:      stores.Shares,
		Cache:       responseCache,
		Config:      cfg,
		Logger:      logger,
	})

	var runner *ingestion.Runner
	if cfg.Upstream.BaseURL != "" {
		source := ingestion.NewHTTPSource(cfg.Upstream, logger)
		runner = ingestion.NewRunner(ingestion.RunnerOptions{
			Manager: ingestion.NewManager(ingestion.ManagerOptions{
				PeriodSource: source,
				LedgerSource: source,
				PeriodStore:  stores.Periods,
				LedgerStore:  stores.Ledger,
			}),
			Hypervisors: stores.Hypervisors,
			Logger:      logger,
		})
	} else {
		logger.Info("No upstream configured, ingestion disabled")
	}

	scheduler, err := app.NewScheduler(ctx, analytics, runner, cfg.Scheduler.AnalyzeCron, cfg.Scheduler.IngestCron, logger)
	if err != nil {
		logger.Fatal("Failed to set up scheduler", zap.Error(err))
	}

	if *analyzeOnStart {
		if _, err := analytics.AnalyzeAll(ctx); err != nil {
			logger.Warn("Initial analysis finished with errors", zap.Error(err))
		}
	}
	scheduler.Start()

	srv := api.NewServer(api.Options{
		Analytics:   analytics,
		Hypervisors: stores.Hypervisors,
		Rows:        stores.Rows,
		Config:      cfg.Server,
		Logger:      logger,
	}).HTTPServer(cfg.Server.Addr)

	go func() {
		logger.Info("API listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	scheduler.Stop()

	logger.Info("Shutdown complete")
}
