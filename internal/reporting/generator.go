package reporting

import (
	"context"
	"errors"
	"sort"
	"time"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/metrics"
	"hypervisor-analytics/internal/service"
	"hypervisor-analytics/internal/storage"
	"hypervisor-analytics/internal/yield"
)

// Analyzer runs a yield analysis for one hypervisor.
type Analyzer interface {
	Analyze(ctx context.Context, chain domain.Chain, address string, q service.Query) (*yield.Result, error)
}

// Generator produces reports from stored data.
type Generator struct {
	hypervisors storage.HypervisorStore
	analyzer    Analyzer
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(hypervisors storage.HypervisorStore, analyzer Analyzer) *Generator {
	return &Generator{
		hypervisors: hypervisors,
		analyzer:    analyzer,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate analyzes every registered hypervisor and builds the report.
// A hypervisor that fails is listed under data quality, not returned as error.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	hvs, err := g.hypervisors.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt:     g.now(),
		HypervisorCount: len(hvs),
	}
	chains := make(map[domain.Chain]struct{})
	drops := make(map[string]int)

	for _, hv := range hvs {
		chains[hv.Chain] = struct{}{}

		res, err := g.analyzer.Analyze(ctx, hv.Chain, hv.Address, service.Query{})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			report.DataSummary.Failed++
			report.DataQuality.Failures = append(report.DataQuality.Failures, FailureRow{
				Chain:   string(hv.Chain),
				Address: hv.Address,
				Error:   failureText(err),
			})
			continue
		}

		report.DataSummary.Analyzed++
		for _, d := range res.Dropped() {
			drops[string(d.Reason)]++
		}
		g.addResult(report, res)
	}

	report.ChainCount = len(chains)
	report.DataQuality.DroppedByReason = sortedDrops(drops)
	report.DataQuality.AllAnalyzed = report.DataSummary.Failed == 0
	sortRows(report)
	return report, nil
}

func (g *Generator) addResult(report *Report, res *yield.Result) {
	s := res.Summary()
	dist := metrics.PeriodDistribution(res.Rows())
	chain := string(s.Chain)

	ds := &report.DataSummary
	ds.TotalPeriods += s.Periods
	ds.DroppedPeriods += s.Dropped
	if ds.DateRangeStart == 0 || s.Start.Timestamp < ds.DateRangeStart {
		ds.DateRangeStart = s.Start.Timestamp
	}
	if s.End.Timestamp > ds.DateRangeEnd {
		ds.DateRangeEnd = s.End.Timestamp
	}

	report.HypervisorMetrics = append(report.HypervisorMetrics, HypervisorMetricRow{
		Chain:           chain,
		Address:         s.Address,
		Symbol:          s.Symbol,
		Periods:         s.Periods,
		Dropped:         s.Dropped,
		Seconds:         s.Cumulative.Seconds,
		FeesYield:       s.Cumulative.FeesYield.InexactFloat64(),
		RewardsYield:    s.Cumulative.RewardsYield.InexactFloat64(),
		NetYield:        s.Cumulative.NetROIYield.InexactFloat64(),
		FeesAPR:         s.Annualized.FeesYield.InexactFloat64(),
		RewardsAPR:      s.Annualized.RewardsYield.InexactFloat64(),
		HypervisorAPR:   s.Annualized.HypeROIYield.InexactFloat64(),
		NetAPR:          s.Annualized.NetROIYield.InexactFloat64(),
		PositiveRate:    dist.PositiveRate,
		Median:          dist.Median,
		P10:             dist.P10,
		P90:             dist.P90,
		MaxDrawdown:     dist.MaxDrawdown,
		MaxLosingStreak: dist.MaxLosingStreak,
	})

	for _, h := range s.Holds {
		report.HoldComparison = append(report.HoldComparison, HoldComparisonRow{
			Chain:          chain,
			Address:        s.Address,
			Strategy:       h.Strategy,
			HoldYield:      h.Yield.InexactFloat64(),
			NetYield:       s.Cumulative.NetROIYield.InexactFloat64(),
			Outperformance: h.Outperformance.InexactFloat64(),
		})
	}

	totals := res.RewardsBySymbol()
	for _, symbol := range s.RewardTokens {
		t := totals[symbol]
		report.Rewards = append(report.Rewards, RewardRow{
			Chain:   chain,
			Address: s.Address,
			Symbol:  symbol,
			Qtty:    t.Qtty.String(),
			USD:     t.USD.InexactFloat64(),
			Periods: t.Periods,
		})
	}
}

func failureText(err error) string {
	switch {
	case errors.Is(err, yield.ErrNoPeriods):
		return "no periods"
	case errors.Is(err, yield.ErrConsistencyViolation):
		return "consistency violation: " + err.Error()
	}
	return err.Error()
}

func sortedDrops(drops map[string]int) []DropCountRow {
	rows := make([]DropCountRow, 0, len(drops))
	for reason, n := range drops {
		rows = append(rows, DropCountRow{Reason: reason, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Reason < rows[j].Reason
	})
	return rows
}

// sortRows orders every table by (chain, address). Per-hypervisor rows keep
// their insertion order, which is hold strategy and reward symbol order.
func sortRows(r *Report) {
	sort.SliceStable(r.HypervisorMetrics, func(i, j int) bool {
		a, b := r.HypervisorMetrics[i], r.HypervisorMetrics[j]
		if a.Chain != b.Chain {
			return a.Chain < b.Chain
		}
		return a.Address < b.Address
	})
	sort.SliceStable(r.HoldComparison, func(i, j int) bool {
		a, b := r.HoldComparison[i], r.HoldComparison[j]
		if a.Chain != b.Chain {
			return a.Chain < b.Chain
		}
		return a.Address < b.Address
	})
	sort.SliceStable(r.Rewards, func(i, j int) bool {
		a, b := r.Rewards[i], r.Rewards[j]
		if a.Chain != b.Chain {
			return a.Chain < b.Chain
		}
		return a.Address < b.Address
	})
	sort.SliceStable(r.DataQuality.Failures, func(i, j int) bool {
		a, b := r.DataQuality.Failures[i], r.DataQuality.Failures[j]
		if a.Chain != b.Chain {
			return a.Chain < b.Chain
		}
		return a.Address < b.Address
	})
}
