// Package yield folds a hypervisor's period records into an analytic series
// of fee, reward, impermanent and net returns.
package yield

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hypervisor-analytics/internal/config"
	"hypervisor-analytics/internal/domain"
)

var (
	// ErrConsistencyViolation is returned when the hypervisor ROI computed from
	// per-token returns disagrees with the per-share accumulator.
	ErrConsistencyViolation = errors.New("hypervisor roi reconciliation mismatch")

	// ErrNoPeriods is returned when no record survives the outlier filter.
	ErrNoPeriods = errors.New("no periods to analyze")
)

// Analyzer computes the analytic series of one hypervisor.
type Analyzer struct {
	chain      domain.Chain
	hypervisor domain.Hypervisor
	records    []*domain.PeriodRecord
	cfg        config.AnalyzerConfig
	logger     *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the analyzer logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates an analyzer. Records may be given in any order.
func NewAnalyzer(chain domain.Chain, records []*domain.PeriodRecord, hv domain.Hypervisor, cfg config.AnalyzerConfig, opts ...Option) *Analyzer {
	a := &Analyzer{
		chain:      chain,
		hypervisor: hv,
		records:    records,
		cfg:        cfg,
		logger:     zap.NewNop(),
	}
	if a.hypervisor.Chain == "" {
		a.hypervisor.Chain = chain
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze filters, folds and reconciles the records. On a reconciliation
// mismatch no result is returned.
func (a *Analyzer) Analyze() (*Result, error) {
	log := a.logger.With(
		zap.String("chain", string(a.chain)),
		zap.String("hypervisor", a.hypervisor.Address),
	)

	kept, dropped := filterRecords(a.records, a.cfg, log)
	if len(kept) == 0 {
		return nil, ErrNoPeriods
	}

	// Sort a copy so the caller's slice is untouched.
	sorted := make([]*domain.PeriodRecord, len(kept))
	copy(sorted, kept)
	sort.SliceStable(sorted, func(i, j int) bool {
		return domain.ComparePeriodRecords(sorted[i], sorted[j]) < 0
	})

	base := seedBaseline(sorted)

	var state State
	rows := make([]Row, 0, len(sorted))
	for _, rec := range sorted {
		state = Step(state, rec, base)
		rows = append(rows, emitRow(a.hypervisor, rec, state, base))
	}

	if err := reconcile(state, base, a.cfg.ReconcileEpsilon); err != nil {
		log.Error("consistency check failed", zap.Error(err))
		return nil, err
	}

	log.Debug("analysis complete",
		zap.Int("periods", len(rows)),
		zap.Int("dropped", len(dropped)),
	)

	return &Result{
		chain:      a.chain,
		hypervisor: a.hypervisor,
		baseline:   base,
		state:      state,
		rows:       rows,
		dropped:    dropped,
		rewards:    rewardsBySymbol(sorted),
	}, nil
}

// reconcile rebuilds the cumulative hypervisor ROI per share twice: from the
// per-token run totals, and from the per-share delta accumulator times the
// deposited value. The two only agree when every boundary snapshot shared by
// consecutive periods carries the same value.
func reconcile(s State, base Baseline, epsilon decimal.Decimal) error {
	if base.PPS.IsZero() {
		return nil
	}
	byToken := s.TokenROI().Sum()
	byShare := s.HypeROIYield.Mul(base.Deposited.USD(base.Prices))
	if diff := byToken.Sub(byShare).Abs(); diff.GreaterThan(epsilon) {
		return fmt.Errorf("%w: per-token %s vs per-share %s (diff %s > %s)",
			ErrConsistencyViolation, byToken, byShare, diff, epsilon)
	}
	return nil
}

// RewardTotal aggregates one reward token across all analyzed periods.
type RewardTotal struct {
	Symbol  string
	Qtty    decimal.Decimal
	USD     decimal.Decimal
	Seconds int64
	Periods int
}

func rewardsBySymbol(records []*domain.PeriodRecord) map[string]RewardTotal {
	totals := make(map[string]RewardTotal)
	for _, rec := range records {
		for _, d := range rec.Rewards.Details {
			t := totals[d.Symbol]
			t.Symbol = d.Symbol
			t.Qtty = t.Qtty.Add(d.Qtty)
			t.USD = t.USD.Add(d.USD)
			t.Seconds += d.Seconds
			t.Periods++
			totals[d.Symbol] = t
		}
	}
	return totals
}

// Result holds the output of one analysis.
type Result struct {
	chain      domain.Chain
	hypervisor domain.Hypervisor
	baseline   Baseline
	state      State
	rows       []Row
	dropped    []Dropped
	rewards    map[string]RewardTotal
}

// Rows returns the full series, one row per analyzed period.
func (r *Result) Rows() []Row {
	return r.rows
}

// Dropped returns the records excluded by the outlier filter.
func (r *Result) Dropped() []Dropped {
	return r.dropped
}

// Baseline returns the reference state of the analysis.
func (r *Result) Baseline() Baseline {
	return r.baseline
}

// SimpleRows down-samples the series so retained rows are at least
// minSeconds apart. The first and last rows are always retained.
func (r *Result) SimpleRows(minSeconds int64) []Row {
	if len(r.rows) <= 2 {
		return append([]Row(nil), r.rows...)
	}
	out := []Row{r.rows[0]}
	lastTs := r.rows[0].End.Timestamp
	for _, row := range r.rows[1 : len(r.rows)-1] {
		if row.End.Timestamp-lastTs >= minSeconds {
			out = append(out, row)
			lastTs = row.End.Timestamp
		}
	}
	return append(out, r.rows[len(r.rows)-1])
}

// RewardsBySymbol returns reward totals keyed by token symbol.
func (r *Result) RewardsBySymbol() map[string]RewardTotal {
	out := make(map[string]RewardTotal, len(r.rewards))
	for k, v := range r.rewards {
		out[k] = v
	}
	return out
}

// Summary is the aggregate view of a whole analysis.
type Summary struct {
	Chain        domain.Chain
	Address      string
	Symbol       string
	Periods      int
	Dropped      int
	Start        domain.TimeLocation
	End          domain.TimeLocation
	BaselinePPS  decimal.Decimal
	FinalPPS     decimal.Decimal
	Cumulative   CumulativeMetrics
	Annualized   AnnualizedMetrics
	Holds        []HoldComparison
	RewardTokens []string
}

// Summary returns the aggregate of the last row.
func (r *Result) Summary() Summary {
	last := r.rows[len(r.rows)-1]
	symbols := make([]string, 0, len(r.rewards))
	for s := range r.rewards {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	return Summary{
		Chain:        r.chain,
		Address:      r.hypervisor.Address,
		Symbol:       r.hypervisor.Symbol,
		Periods:      len(r.rows),
		Dropped:      len(r.dropped),
		Start:        r.baseline.Start,
		End:          r.baseline.End,
		BaselinePPS:  r.baseline.PPS,
		FinalPPS:     last.End.PricePerShare,
		Cumulative:   last.Cumulative,
		Annualized:   last.Annualized,
		Holds:        last.Holds,
		RewardTokens: symbols,
	}
}
