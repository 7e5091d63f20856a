package yield

import (
	"github.com/shopspring/decimal"

	"hypervisor-analytics/internal/domain"
)

// PeriodMetrics are the figures of a single period.
type PeriodMetrics struct {
	Seconds          int64
	Blocks           int64
	FeesUSD          decimal.Decimal
	FeesPerShare     decimal.Decimal
	FeesYield        decimal.Decimal
	RewardsUSD       decimal.Decimal
	RewardsYield     decimal.Decimal
	ImpermanentUSD   decimal.Decimal
	ImpermanentYield decimal.Decimal
	HypeROIQttyUSD   decimal.Decimal
	HypeROIPerShare  decimal.Decimal
	HypeROIYield     decimal.Decimal
	NetROIYield      decimal.Decimal
}

// CumulativeMetrics are running totals since the baseline.
type CumulativeMetrics struct {
	Seconds             int64
	Blocks              int64
	FeesQtty            domain.TokenPairAmount
	FeesUSD             decimal.Decimal
	FeesPerShare        decimal.Decimal
	FeesYield           decimal.Decimal
	RewardsUSD          decimal.Decimal
	RewardsPerShare     decimal.Decimal
	RewardsYield        decimal.Decimal
	ImpermanentUSD      decimal.Decimal
	ImpermanentPerShare decimal.Decimal
	ImpermanentYield    decimal.Decimal
	HypeROIQttyUSD      decimal.Decimal
	HypeROIPerShare     decimal.Decimal
	HypeROIYield        decimal.Decimal
	NetROIYield         decimal.Decimal
	RebalanceDivergence domain.TokenPairAmount
}

// AnnualizedMetrics extrapolate cumulative yields to one year.
type AnnualizedMetrics struct {
	FeesYield        decimal.Decimal
	RewardsYield     decimal.Decimal
	ImpermanentYield decimal.Decimal
	HypeROIYield     decimal.Decimal
	NetROIYield      decimal.Decimal
}

// SnapshotView is a status snapshot with its derived valuations.
type SnapshotView struct {
	Timestamp     int64
	Block         int64
	Prices        domain.TokenPairAmount
	Underlying    domain.TokenPairAmount
	UnderlyingUSD decimal.Decimal
	Supply        decimal.Decimal
	PricePerShare decimal.Decimal
}

// HoldComparison is one hold strategy against the net ROI.
type HoldComparison struct {
	Strategy       string
	Yield          decimal.Decimal
	Annualized     decimal.Decimal
	Outperformance decimal.Decimal // (1+net)/(1+hold) - 1
}

// Row is the canonical analytic row emitted per period.
type Row struct {
	Chain      domain.Chain
	Address    string
	Symbol     string
	PeriodID   string
	Period     PeriodMetrics
	Cumulative CumulativeMetrics
	Annualized AnnualizedMetrics
	Ini        SnapshotView
	End        SnapshotView
	Holds      []HoldComparison
}

// Hold returns the named hold comparison, or a zero value.
func (r *Row) Hold(strategy string) HoldComparison {
	for _, h := range r.Holds {
		if h.Strategy == strategy {
			return h
		}
	}
	return HoldComparison{Strategy: strategy}
}

func snapshotView(loc domain.TimeLocation, s domain.StatusSnapshot) SnapshotView {
	return SnapshotView{
		Timestamp:     loc.Timestamp,
		Block:         loc.Block,
		Prices:        s.Prices,
		Underlying:    s.Underlying.Qtty,
		UnderlyingUSD: s.UnderlyingUSD(),
		Supply:        s.Supply,
		PricePerShare: s.PricePerShare(),
	}
}

// emitRow derives every yield of the current state. Nothing here feeds back
// into the fold.
func emitRow(hv domain.Hypervisor, rec *domain.PeriodRecord, s State, base Baseline) Row {
	v := computePeriod(rec)
	cum := CumulativeMetrics{
		Seconds:             s.Seconds,
		Blocks:              s.Blocks,
		FeesQtty:            s.FeesQtty,
		FeesUSD:             s.FeesUSD,
		FeesPerShare:        s.FeesPerShare,
		FeesYield:           s.FeesYield(base),
		RewardsUSD:          s.RewardsUSD,
		RewardsPerShare:     s.RewardsPerShare,
		RewardsYield:        s.RewardsYield(base),
		ImpermanentUSD:      s.ImpermanentUSD,
		ImpermanentPerShare: s.ImpermanentPerShare,
		ImpermanentYield:    s.ImpermanentYield(base),
		HypeROIQttyUSD:      s.HypeROIQttyUSD,
		HypeROIPerShare:     s.HypeROIPerShare,
		HypeROIYield:        s.HypeROIYieldFromPerShare(base),
		NetROIYield:         s.NetROIYield(base),
		RebalanceDivergence: s.RebalanceDivergence,
	}

	row := Row{
		Chain:    hv.Chain,
		Address:  rec.Address,
		Symbol:   hv.Symbol,
		PeriodID: rec.ID(),
		Period: PeriodMetrics{
			Seconds:          v.Seconds,
			Blocks:           v.Blocks,
			FeesUSD:          v.FeesUSD,
			FeesPerShare:     v.FeesPerShare,
			FeesYield:        v.FeesYield(),
			RewardsUSD:       v.RewardsUSD,
			RewardsYield:     v.RewardsYield(),
			ImpermanentUSD:   v.ImpermanentUSD,
			ImpermanentYield: v.ImpermanentYield(),
			HypeROIQttyUSD:   v.HypeROIQttyUSD,
			HypeROIPerShare:  v.HypeROIPerShare,
			HypeROIYield:     v.HypeROIYield(),
			NetROIYield:      v.NetROIYield(),
		},
		Cumulative: cum,
		Annualized: AnnualizedMetrics{
			FeesYield:        Annualize(cum.FeesYield, s.Seconds),
			RewardsYield:     Annualize(cum.RewardsYield, s.Seconds),
			ImpermanentYield: Annualize(cum.ImpermanentYield, s.Seconds),
			HypeROIYield:     Annualize(cum.HypeROIYield, s.Seconds),
			NetROIYield:      Annualize(cum.NetROIYield, s.Seconds),
		},
		Ini: snapshotView(rec.Timeframe.Ini, rec.Status.Ini),
		End: snapshotView(rec.Timeframe.End, rec.Status.End),
	}

	for _, strategy := range HoldStrategies {
		hold := base.HoldYield(strategy, rec.Status.End.Prices)
		row.Holds = append(row.Holds, HoldComparison{
			Strategy:       strategy,
			Yield:          hold,
			Annualized:     Annualize(hold, s.Seconds),
			Outperformance: outperformance(cum.NetROIYield, hold),
		})
	}
	return row
}

// outperformance is (1+net)/(1+hold) - 1, zero when the hold lost everything.
func outperformance(net, hold decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	den := one.Add(hold)
	if den.IsZero() {
		return decimal.Zero
	}
	return one.Add(net).Div(den).Sub(one)
}
