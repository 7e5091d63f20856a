package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"hypervisor-analytics/internal/app"
	"hypervisor-analytics/internal/config"
	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/ingestion"
	"hypervisor-analytics/internal/logging"
	"hypervisor-analytics/internal/reporting"
	"hypervisor-analytics/internal/service"
)

func main() {
	configPath := flag.String("config", config.Env("CONFIG_PATH", ""), "Path to YAML config")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (requires --ingest to have data)")
	ingest := flag.Bool("ingest", false, "Sync from upstream before reporting")
	perHypervisor := flag.Bool("returns-csv", true, "Also write the full return series of each hypervisor")
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

	ctx := context.Background()

	stores, cleanup, err := app.OpenStores(ctx, cfg, *useMemory, logger)
	if err != nil {
		logger.Fatal("Failed to create stores", zap.Error(err))
	}
	defer cleanup()

	if _, err := app.SeedHypervisors(ctx, stores.Hypervisors, cfg); err != nil {
		logger.Fatal("Failed to register hypervisors", zap.Error(err))
	}

	if *ingest {
		if cfg.Upstream.BaseURL == "" {
			logger.Fatal("--ingest requires upstream.base_url")
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
		if _, err := runner.Sync(ctx); err != nil {
			logger.Warn("Ingestion finished with errors", zap.Error(err))
		}
	}

	analytics := service.New(service.Options{
		Hypervisors: stores.Hypervisors,
		Periods:     stores.Periods,
		Ledger:      stores.Ledger,
		Config:      cfg,
		Logger:      logger,
	})

	report, err := reporting.NewGenerator(stores.Hypervisors, analytics).Generate(ctx)
	if err != nil {
		logger.Fatal("Failed to generate report", zap.Error(err))
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		logger.Fatal("Failed to create output directory", zap.Error(err))
	}

	files := map[string]string{
		"REPORT.md":       reporting.RenderMarkdown(report),
		"hypervisors.csv": reporting.RenderCSV(report.HypervisorMetrics),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(*outputDir, name), []byte(content), 0644); err != nil {
			logger.Fatal("Failed to write output", zap.String("file", name), zap.Error(err))
		}
	}

	if *perHypervisor {
		dir := filepath.Join(*outputDir, "returns")
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create returns directory", zap.Error(err))
		}
		for _, row := range report.HypervisorMetrics {
			hv, err := stores.Hypervisors.GetByAddress(ctx, domain.Chain(row.Chain), row.Address)
			if err != nil {
				logger.Warn("Hypervisor vanished", zap.String("address", row.Address), zap.Error(err))
				continue
			}
			out, err := analytics.ReturnsCSV(ctx, hv.Chain, hv.Address, service.Query{})
			if err != nil {
				logger.Warn("Failed to render returns", zap.String("address", row.Address), zap.Error(err))
				continue
			}
			name := fmt.Sprintf("%s_%s.csv", hv.Chain, hv.Address)
			if err := os.WriteFile(filepath.Join(dir, name), out, 0644); err != nil {
				logger.Fatal("Failed to write returns", zap.String("file", name), zap.Error(err))
			}
		}
	}

	logger.Info("Report written",
		zap.String("dir", *outputDir),
		zap.Int("analyzed", report.DataSummary.Analyzed),
		zap.Int("failed", report.DataSummary.Failed))
}
