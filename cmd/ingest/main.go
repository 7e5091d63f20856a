package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"hypervisor-analytics/internal/app"
	"hypervisor-analytics/internal/config"
	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/ingestion"
	"hypervisor-analytics/internal/logging"
	"hypervisor-analytics/internal/observability"
)

func main() {
	configPath := flag.String("config", config.Env("CONFIG_PATH", ""), "Path to YAML config")
	mode := flag.String("mode", "once", "Ingestion mode: once or watch")
	target := flag.String("hypervisor", "", "Sync a single hypervisor given as chain:address")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
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
	if cfg.Upstream.BaseURL == "" {
		logger.Fatal("upstream.base_url is required")
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Info("Starting metrics server", zap.String("addr", *metricsAddr))
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := app.OpenStores(ctx, cfg, *useMemory, logger)
	if err != nil {
		logger.Fatal("Failed to create stores", zap.Error(err))
	}
	defer cleanup()

	if _, err := app.SeedHypervisors(ctx, stores.Hypervisors, cfg); err != nil {
		logger.Fatal("Failed to register hypervisors", zap.Error(err))
	}

	source := ingestion.NewHTTPSource(cfg.Upstream, logger)
	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Manager: ingestion.NewManager(ingestion.ManagerOptions{
			PeriodSource: source,
			LedgerSource: source,
			PeriodStore:  stores.Periods,
			LedgerStore:  stores.Ledger,
		}),
		Hypervisors: stores.Hypervisors,
		Logger:      logger,
	})

	switch *mode {
	case "once":
		if *target != "" {
			chain, address, err := parseTarget(*target)
			if err != nil {
				logger.Fatal("Invalid --hypervisor", zap.Error(err))
			}
			periods, ledger, err := runner.SyncHypervisor(ctx, chain, address)
			if err != nil {
				logger.Fatal("Sync failed", zap.Error(err))
			}
			logger.Info("Sync complete", zap.Int("periods", periods), zap.Int("ledger", ledger))
			return
		}
		res, err := runner.Sync(ctx)
		if res != nil {
			logger.Info("Sync complete",
				zap.Int("hypervisors", res.Hypervisors),
				zap.Int("periods", res.Periods),
				zap.Int("ledger", res.Ledger),
				zap.Int("failed", res.Failed))
		}
		if err != nil {
			logger.Fatal("Sync finished with errors", zap.Error(err))
		}

	case "watch":
		scheduler, err := app.NewScheduler(ctx, nil, runner, "", cfg.Scheduler.IngestCron, logger)
		if err != nil {
			logger.Fatal("Failed to set up scheduler", zap.Error(err))
		}
		scheduler.Start()
		<-ctx.Done()
		scheduler.Stop()
		logger.Info("Shutdown complete")

	default:
		logger.Fatal("Unknown mode", zap.String("mode", *mode))
	}
}

func parseTarget(s string) (domain.Chain, string, error) {
	chainPart, addrPart, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", errors.New("expected chain:address")
	}
	chain, err := domain.ParseChain(chainPart)
	if err != nil {
		return "", "", err
	}
	address, err := domain.NormalizeAddress(addrPart)
	if err != nil {
		return "", "", err
	}
	return chain, address, nil
}
