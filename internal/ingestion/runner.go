package ingestion

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/logging"
	"hypervisor-analytics/internal/observability"
	"hypervisor-analytics/internal/storage"
)

// Runner syncs every registered hypervisor from upstream.
type Runner struct {
	manager     *Manager
	hypervisors storage.HypervisorStore
	logger      *zap.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Manager     *Manager
	Hypervisors storage.HypervisorStore
	Logger      *zap.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		manager:     opts.Manager,
		hypervisors: opts.Hypervisors,
		logger:      logging.OrNop(opts.Logger),
	}
}

// SyncResult summarizes one sync pass.
type SyncResult struct {
	Hypervisors int
	Periods     int
	Ledger      int
	Failed      int
}

// Sync ingests periods and ledger operations of every registered hypervisor.
// A failing hypervisor does not stop the pass; errors are combined.
func (r *Runner) Sync(ctx context.Context) (*SyncResult, error) {
	hvs, err := r.hypervisors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list hypervisors: %w", err)
	}

	result := &SyncResult{}
	var errs error
	for _, hv := range hvs {
		if ctx.Err() != nil {
			return result, multierr.Append(errs, ctx.Err())
		}
		periods, ledger, err := r.SyncHypervisor(ctx, hv.Chain, hv.Address)
		result.Hypervisors++
		result.Periods += periods
		result.Ledger += ledger
		if err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("%s/%s: %w", hv.Chain, hv.Address, err))
		}
	}

	if errs == nil {
		observability.DefaultMetrics.LastSuccessfulIngestion.Set(float64(time.Now().Unix()))
	}
	r.logger.Info("Sync complete",
		zap.Int("hypervisors", result.Hypervisors),
		zap.Int("periods", result.Periods),
		zap.Int("ledger", result.Ledger),
		zap.Int("failed", result.Failed))

	return result, errs
}

// SyncHypervisor ingests one hypervisor. Returns stored period and ledger counts.
func (r *Runner) SyncHypervisor(ctx context.Context, chain domain.Chain, address string) (int, int, error) {
	periods, err := r.manager.IngestPeriods(ctx, chain, address)
	if err != nil {
		return 0, 0, fmt.Errorf("ingest periods: %w", err)
	}
	observability.RecordIngested("periods", periods)

	ledger, err := r.manager.IngestLedger(ctx, chain, address)
	if err != nil {
		return periods, 0, fmt.Errorf("ingest ledger: %w", err)
	}
	observability.RecordIngested("ledger", ledger)

	r.logger.Debug("Synced hypervisor",
		zap.String("chain", string(chain)),
		zap.String("address", address),
		zap.Int("periods", periods),
		zap.Int("ledger", ledger))

	return periods, ledger, nil
}
