// Package service runs the analytics over stored snapshots and keeps the
// derived tables and response cache current.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"hypervisor-analytics/internal/cache"
	"hypervisor-analytics/internal/config"
	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/idhash"
	"hypervisor-analytics/internal/logging"
	"hypervisor-analytics/internal/metrics"
	"hypervisor-analytics/internal/observability"
	"hypervisor-analytics/internal/storage"
	"hypervisor-analytics/internal/twa"
	"hypervisor-analytics/internal/yield"
)

var (
	// ErrUnknownHypervisor is returned for a hypervisor that is not registered.
	ErrUnknownHypervisor = errors.New("unknown hypervisor")

	// ErrAnalysisInProgress is returned when the same hypervisor is already being analyzed.
	ErrAnalysisInProgress = errors.New("analysis already in progress")
)

// Analytics coordinates stores, analyzers and the response cache.
type Analytics struct {
	hypervisors storage.HypervisorStore
	periods     storage.PeriodRecordStore
	ledger      storage.LedgerStore
	rows        storage.AnalyticRowStore // optional
	shares      storage.RewardShareStore // optional
	cache       *cache.Cache             // optional
	cfg         *config.Config
	logger      *zap.Logger
	clock       func() time.Time

	inflight *xsync.Map[string, time.Time]
}

// Options for creating Analytics.
type Options struct {
	Hypervisors storage.HypervisorStore
	Periods     storage.PeriodRecordStore
	Ledger      storage.LedgerStore
	Rows        storage.AnalyticRowStore
	Shares      storage.RewardShareStore
	Cache       *cache.Cache
	Config      *config.Config
	Logger      *zap.Logger
	Clock       func() time.Time
}

// New creates an Analytics service.
func New(opts Options) *Analytics {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Analytics{
		hypervisors: opts.Hypervisors,
		periods:     opts.Periods,
		ledger:      opts.Ledger,
		rows:        opts.Rows,
		shares:      opts.Shares,
		cache:       opts.Cache,
		cfg:         cfg,
		logger:      logging.OrNop(opts.Logger),
		clock:       clock,
		inflight:    xsync.NewMap[string, time.Time](),
	}
}

func (a *Analytics) hypervisor(ctx context.Context, chain domain.Chain, address string) (*domain.Hypervisor, error) {
	hv, err := a.hypervisors.GetByAddress(ctx, chain, address)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownHypervisor, chain, address)
	}
	if err != nil {
		return nil, fmt.Errorf("load hypervisor: %w", err)
	}
	return hv, nil
}

func (a *Analytics) loadPeriods(ctx context.Context, chain domain.Chain, address string, q Query) ([]*domain.PeriodRecord, error) {
	switch {
	case q.hasBlocks():
		lo, hi := bounds(q.FromBlock, q.ToBlock)
		return a.periods.GetByBlockRange(ctx, chain, address, lo, hi)
	case q.hasTimestamps():
		lo, hi := bounds(q.FromTs, q.ToTs)
		return a.periods.GetByTimeRange(ctx, chain, address, lo, hi)
	}
	return a.periods.GetByHypervisor(ctx, chain, address)
}

// Analyze runs the yield analyzer over the stored records selected by q.
func (a *Analytics) Analyze(ctx context.Context, chain domain.Chain, address string, q Query) (*yield.Result, error) {
	hv, err := a.hypervisor(ctx, chain, address)
	if err != nil {
		return nil, err
	}
	recs, err := a.loadPeriods(ctx, chain, address, q)
	if err != nil {
		return nil, fmt.Errorf("load periods: %w", err)
	}

	start := a.clock()
	res, err := yield.NewAnalyzer(chain, recs, *hv, a.cfg.Analyzer, yield.WithLogger(a.logger)).Analyze()
	elapsed := a.clock().Sub(start).Seconds()
	switch {
	case errors.Is(err, yield.ErrConsistencyViolation):
		observability.RecordConsistencyViolation(string(chain))
		observability.RecordAnalysis("yield", "violation", elapsed)
		return nil, err
	case err != nil:
		observability.RecordAnalysis("yield", "error", elapsed)
		return nil, err
	}

	for _, d := range res.Dropped() {
		observability.RecordFiltered(string(d.Reason))
	}
	observability.RecordAnalysis("yield", "ok", elapsed)
	return res, nil
}

// ReturnsResponse is the rendered yield series of one hypervisor.
type ReturnsResponse struct {
	Summary      map[string]any       `json:"summary"`
	Distribution metrics.Distribution `json:"distribution"`
	Rows         []map[string]any     `json:"rows"`
	Dropped      []DroppedRecord      `json:"dropped,omitempty"`
}

// DroppedRecord is a record excluded by the outlier filter.
type DroppedRecord struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Returns renders the yield series, cached per query.
func (a *Analytics) Returns(ctx context.Context, chain domain.Chain, address string, q Query) (*ReturnsResponse, error) {
	key := cache.Key(string(chain), address, cache.KindReturns, q.key())
	return cache.GetOrCompute(ctx, a.cache, cache.KindReturns, key, func(ctx context.Context) (*ReturnsResponse, error) {
		res, err := a.Analyze(ctx, chain, address, q)
		if err != nil {
			return nil, err
		}
		return a.renderReturns(res, q.Simple), nil
	})
}

func (a *Analytics) renderReturns(res *yield.Result, simple bool) *ReturnsResponse {
	rows := res.Rows()
	view := yield.FullView
	if simple {
		rows = res.SimpleRows(a.cfg.Analyzer.SimpleMinSeconds)
		view = yield.SimpleView
	}

	out := &ReturnsResponse{
		Summary:      yield.SummaryView(res.Summary()),
		Distribution: metrics.PeriodDistribution(res.Rows()),
		Rows:         make([]map[string]any, len(rows)),
	}
	for i, row := range rows {
		out.Rows[i] = view(row)
	}
	for _, d := range res.Dropped() {
		out.Dropped = append(out.Dropped, DroppedRecord{ID: d.ID, Reason: string(d.Reason)})
	}
	return out
}

// ReturnsCSV renders the full series as CSV, cached per query.
func (a *Analytics) ReturnsCSV(ctx context.Context, chain domain.Chain, address string, q Query) ([]byte, error) {
	key := cache.Key(string(chain), address, cache.KindReturnsCSV, q.key())
	csv, err := cache.GetOrCompute(ctx, a.cache, cache.KindReturnsCSV, key, func(ctx context.Context) (string, error) {
		res, err := a.Analyze(ctx, chain, address, q)
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if err := res.WriteCSV(&buf, a.cfg.Analyzer.CSVSeparator); err != nil {
			return "", err
		}
		return buf.String(), nil
	})
	if err != nil {
		return nil, err
	}
	return []byte(csv), nil
}

// RewardToken is the reward total of one token.
type RewardToken struct {
	Symbol  string  `json:"symbol"`
	Qtty    string  `json:"qtty"`
	USD     float64 `json:"usd"`
	Seconds int64   `json:"seconds"`
	Periods int     `json:"periods"`
}

// RewardsResponse lists reward totals by token.
type RewardsResponse struct {
	Chain   string        `json:"chain"`
	Address string        `json:"address"`
	Tokens  []RewardToken `json:"tokens"`
}

// Rewards aggregates reward tokens over the analyzed periods, cached per query.
func (a *Analytics) Rewards(ctx context.Context, chain domain.Chain, address string, q Query) (*RewardsResponse, error) {
	key := cache.Key(string(chain), address, cache.KindRewards, q.key())
	return cache.GetOrCompute(ctx, a.cache, cache.KindRewards, key, func(ctx context.Context) (*RewardsResponse, error) {
		res, err := a.Analyze(ctx, chain, address, q)
		if err != nil {
			return nil, err
		}
		totals := res.RewardsBySymbol()
		out := &RewardsResponse{Chain: string(chain), Address: address, Tokens: []RewardToken{}}
		for _, symbol := range res.Summary().RewardTokens {
			t := totals[symbol]
			out.Tokens = append(out.Tokens, RewardToken{
				Symbol:  t.Symbol,
				Qtty:    t.Qtty.String(),
				USD:     t.USD.InexactFloat64(),
				Seconds: t.Seconds,
				Periods: t.Periods,
			})
		}
		return out, nil
	})
}

// TWA computes time-weighted shares over w, or over the configured trailing
// window when w is nil. Shares are persisted once per window.
func (a *Analytics) TWA(ctx context.Context, chain domain.Chain, address string, w *twa.Window) (*twa.Result, error) {
	if _, err := a.hypervisor(ctx, chain, address); err != nil {
		return nil, err
	}

	windowKey := "default"
	if w != nil {
		unit, r, err := w.Resolve()
		if err != nil {
			return nil, err
		}
		windowKey = fmt.Sprintf("%s%d-%d", unit, r.Start, r.End)
	}

	key := cache.Key(string(chain), address, cache.KindTWA, windowKey)
	return cache.GetOrCompute(ctx, a.cache, cache.KindTWA, key, func(ctx context.Context) (*twa.Result, error) {
		return a.computeTWA(ctx, chain, address, w)
	})
}

func (a *Analytics) computeTWA(ctx context.Context, chain domain.Chain, address string, w *twa.Window) (*twa.Result, error) {
	maxBlock := int64(math.MaxInt64)
	if w != nil && w.Blocks != nil {
		maxBlock = w.Blocks.End
	}
	ops, err := a.ledger.GetUpToBlock(ctx, chain, address, maxBlock)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	calc := twa.NewCalculator(ops, a.cfg.TWA, twa.WithLogger(a.logger.With(
		zap.String("chain", string(chain)),
		zap.String("hypervisor", address),
	)))

	window := w
	if window == nil {
		dw, err := calc.DefaultWindow()
		if err != nil {
			return nil, err
		}
		window = &dw
	}

	start := a.clock()
	res, err := calc.Calculate(*window)
	elapsed := a.clock().Sub(start).Seconds()
	if err != nil {
		observability.RecordAnalysis("twa", "error", elapsed)
		return nil, err
	}
	observability.RecordAnalysis("twa", "ok", elapsed)
	if res.OverBound {
		observability.RecordOverBound(string(chain))
	}

	if err := a.persistShares(ctx, chain, address, res); err != nil {
		a.logger.Warn("Failed to persist reward shares", zap.Error(err))
	}
	return res, nil
}

func (a *Analytics) persistShares(ctx context.Context, chain domain.Chain, address string, res *twa.Result) error {
	if a.shares == nil || len(res.Users) == 0 {
		return nil
	}
	windowID := idhash.ComputeWindowID(string(chain), address, string(res.Unit), res.Range.Start, res.Range.End)
	now := a.clock().Unix()

	users := res.SortedUsers()
	shares := make([]*domain.RewardShare, len(users))
	for i, u := range users {
		shares[i] = &domain.RewardShare{
			WindowID:               windowID,
			Chain:                  string(chain),
			Hypervisor:             address,
			Unit:                   string(res.Unit),
			WindowStart:            res.Range.Start,
			WindowEnd:              res.Range.End,
			User:                   u.User,
			TimeWeightedValue:      u.TimeWeightedValue,
			TimeWeightedPercentage: u.TimeWeightedPercentage,
			WindowShare:            u.WindowShare,
			ComputedAt:             now,
		}
	}

	err := a.shares.InsertBulk(ctx, shares)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	return err
}
