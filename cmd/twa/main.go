// Command twa prints the time-weighted user shares of one hypervisor.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"go.uber.org/zap"

	"hypervisor-analytics/internal/app"
	"hypervisor-analytics/internal/config"
	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/logging"
	"hypervisor-analytics/internal/service"
	"hypervisor-analytics/internal/storage"
)

func main() {
	configPath := flag.String("config", config.Env("CONFIG_PATH", ""), "Path to YAML config")
	chainFlag := flag.String("chain", "ethereum", "Chain of the hypervisor")
	addressFlag := flag.String("address", "", "Hypervisor address")
	fromBlock := flag.Int64("from-block", -1, "Window start block")
	toBlock := flag.Int64("to-block", -1, "Window end block")
	fromTs := flag.Int64("from-ts", -1, "Window start timestamp (unix seconds)")
	toTs := flag.Int64("to-ts", -1, "Window end timestamp (unix seconds)")
	persist := flag.Bool("persist", true, "Store the shares in ClickHouse")
	flag.Parse()

	logger, err := logging.New()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	chain, err := domain.ParseChain(*chainFlag)
	if err != nil {
		logger.Fatal("Invalid --chain", zap.Error(err))
	}
	address, err := domain.NormalizeAddress(*addressFlag)
	if err != nil {
		logger.Fatal("Invalid --address", zap.Error(err))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := context.Background()
	stores, cleanup, err := app.OpenStores(ctx, cfg, false, logger)
	if err != nil {
		logger.Fatal("Failed to create stores", zap.Error(err))
	}
	defer cleanup()

	var shares storage.RewardShareStore
	if *persist {
		shares = stores.Shares
	}
	analytics := service.New(service.Options{
		Hypervisors: stores.Hypervisors,
		Periods:     stores.Periods,
		Ledger:      stores.Ledger,
		Shares:      shares,
		Config:      cfg,
		Logger:      logger,
	})

	var q service.Query
	for _, b := range []struct {
		flag *int64
		dst  **int64
	}{{fromBlock, &q.FromBlock}, {toBlock, &q.ToBlock}, {fromTs, &q.FromTs}, {toTs, &q.ToTs}} {
		if *b.flag >= 0 {
			*b.dst = b.flag
		}
	}
	window, err := q.Window()
	if err != nil {
		logger.Fatal("Invalid window", zap.Error(err))
	}

	res, err := analytics.TWA(ctx, chain, address, window)
	if err != nil {
		logger.Fatal("TWA failed", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Fatal("Failed to encode result", zap.Error(err))
	}
}
