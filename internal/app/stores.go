// Package app wires stores and services for the command binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"hypervisor-analytics/internal/config"
	"hypervisor-analytics/internal/storage"
	chstore "hypervisor-analytics/internal/storage/clickhouse"
	"hypervisor-analytics/internal/storage/memory"
	"hypervisor-analytics/internal/storage/migrations"
	pgstore "hypervisor-analytics/internal/storage/postgres"
)

// Stores holds every storage implementation.
type Stores struct {
	Hypervisors storage.HypervisorStore
	Periods     storage.PeriodRecordStore
	Ledger      storage.LedgerStore
	Rows        storage.AnalyticRowStore
	Shares      storage.RewardShareStore
}

// OpenStores creates the stores. In memory mode no database is touched;
// otherwise PostgreSQL holds the source snapshots and ClickHouse the derived
// tables, both migrated before use.
func OpenStores(ctx context.Context, cfg *config.Config, useMemory bool, logger *zap.Logger) (*Stores, func(), error) {
	if useMemory {
		return &Stores{
			Hypervisors: memory.NewHypervisorStore(),
			Periods:     memory.NewPeriodRecordStore(),
			Ledger:      memory.NewLedgerStore(),
			Rows:        memory.NewAnalyticRowStore(),
			Shares:      memory.NewRewardShareStore(),
		}, func() {}, nil
	}

	if cfg.Postgres.DSN == "" || cfg.ClickHouse.DSN == "" {
		return nil, nil, errors.New("postgres and clickhouse DSNs are required (use memory mode otherwise)")
	}

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}
	logger.Info("Stores ready", zap.String("postgres", "migrated"), zap.String("clickhouse", "migrated"))

	stores := &Stores{
		Hypervisors: pgstore.NewHypervisorStore(pool),
		Periods:     pgstore.NewPeriodRecordStore(pool),
		Ledger:      pgstore.NewLedgerStore(pool),
		Rows:        chstore.NewAnalyticRowStore(chConn),
		Shares:      chstore.NewRewardShareStore(chConn),
	}
	cleanup := func() {
		if err := chConn.Close(); err != nil {
			logger.Warn("Close clickhouse", zap.Error(err))
		}
		pool.Close()
	}
	return stores, cleanup, nil
}

// SeedHypervisors registers the configured hypervisors. Already registered
// ones are left untouched. Returns the number inserted.
func SeedHypervisors(ctx context.Context, store storage.HypervisorStore, cfg *config.Config) (int, error) {
	inserted := 0
	for i := range cfg.Hypervisors {
		hv := cfg.Hypervisors[i]
		err := store.Insert(ctx, &hv)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			continue
		case err != nil:
			return inserted, fmt.Errorf("register %s/%s: %w", hv.Chain, hv.Address, err)
		}
		inserted++
	}
	return inserted, nil
}
