package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/observability"
	"hypervisor-analytics/internal/yield"
)

// HypervisorOutcome is the result of one hypervisor in a batch.
type HypervisorOutcome struct {
	Chain   domain.Chain
	Address string
	Rows    int
	Skipped bool // another run was in flight or nothing to analyze
	Err     error
}

// BatchResult summarizes an AnalyzeAll pass.
type BatchResult struct {
	Outcomes []HypervisorOutcome
	Analyzed int
	Skipped  int
	Failed   int
}

// AnalyzeAll analyzes every registered hypervisor on a worker pool,
// persists the series and drops its cached responses.
func (a *Analytics) AnalyzeAll(ctx context.Context) (*BatchResult, error) {
	hvs, err := a.hypervisors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list hypervisors: %w", err)
	}

	workers := a.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	pool := pond.NewPool(workers)
	defer pool.StopAndWait()

	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	outcomes := make([]HypervisorOutcome, len(hvs))
	for i, hv := range hvs {
		group.Submit(func() {
			outcomes[i] = a.analyzeOne(groupCtx, hv.Chain, hv.Address)
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		return nil, err
	}

	result := &BatchResult{Outcomes: outcomes}
	var errs error
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("%s/%s: %w", o.Chain, o.Address, o.Err))
		case o.Skipped:
			result.Skipped++
		default:
			result.Analyzed++
		}
	}
	if result.Failed == 0 {
		observability.DefaultMetrics.LastSuccessfulAnalysis.SetToCurrentTime()
	}

	a.logger.Info("Batch analysis complete",
		zap.Int("hypervisors", len(hvs)),
		zap.Int("analyzed", result.Analyzed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))

	return result, errs
}

// AnalyzeHypervisor runs one full analysis and persists it. A concurrent
// run of the same hypervisor returns ErrAnalysisInProgress.
func (a *Analytics) AnalyzeHypervisor(ctx context.Context, chain domain.Chain, address string) (*yield.Result, error) {
	key := string(chain) + ":" + address
	if since, loaded := a.inflight.LoadOrStore(key, a.clock()); loaded {
		return nil, fmt.Errorf("%w: %s since %s", ErrAnalysisInProgress, key, since.Format("15:04:05"))
	}
	defer a.inflight.Delete(key)

	observability.DefaultMetrics.InFlightAnalyses.Inc()
	defer observability.DefaultMetrics.InFlightAnalyses.Dec()

	res, err := a.Analyze(ctx, chain, address, Query{})
	if err != nil {
		return nil, err
	}

	if a.rows != nil {
		if err := a.rows.InsertBulk(ctx, res.AnalyticRows(a.clock().Unix())); err != nil {
			return nil, fmt.Errorf("persist analytic rows: %w", err)
		}
	}
	if err := a.cache.Invalidate(ctx, string(chain), address); err != nil {
		a.logger.Warn("Cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
	return res, nil
}

// InFlight lists hypervisors currently being analyzed.
func (a *Analytics) InFlight() []string {
	var keys []string
	a.inflight.Range(func(k string, _ time.Time) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

func (a *Analytics) analyzeOne(ctx context.Context, chain domain.Chain, address string) HypervisorOutcome {
	out := HypervisorOutcome{Chain: chain, Address: address}
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	res, err := a.AnalyzeHypervisor(ctx, chain, address)
	switch {
	case errors.Is(err, ErrAnalysisInProgress), errors.Is(err, yield.ErrNoPeriods):
		out.Skipped = true
		a.logger.Debug("Skipped hypervisor",
			zap.String("chain", string(chain)),
			zap.String("address", address),
			zap.Error(err))
	case err != nil:
		out.Err = err
		a.logger.Error("Hypervisor analysis failed",
			zap.String("chain", string(chain)),
			zap.String("address", address),
			zap.Error(err))
	default:
		out.Rows = len(res.Rows())
	}
	return out
}
