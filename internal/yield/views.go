package yield

import (
	"time"

	"github.com/shopspring/decimal"

	"hypervisor-analytics/internal/domain"
)

// Views are the transport boundary: decimals become float64 here and nowhere
// earlier.

func f(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func pairView(p domain.TokenPairAmount) map[string]any {
	return map[string]any{"token0": f(p.Token0), "token1": f(p.Token1)}
}

func snapshotMap(s SnapshotView) map[string]any {
	return map[string]any{
		"timestamp":       s.Timestamp,
		"block":           s.Block,
		"prices":          pairView(s.Prices),
		"underlying":      pairView(s.Underlying),
		"underlying_usd":  f(s.UnderlyingUSD),
		"supply":          f(s.Supply),
		"price_per_share": f(s.PricePerShare),
	}
}

// FullView projects a row into its nested output shape, legacy flat names included.
func FullView(row Row) map[string]any {
	holds := make(map[string]any, len(row.Holds))
	for _, h := range row.Holds {
		holds[h.Strategy] = map[string]any{
			"yield":          f(h.Yield),
			"annualized":     f(h.Annualized),
			"outperformance": f(h.Outperformance),
		}
	}

	p, c, a := row.Period, row.Cumulative, row.Annualized
	out := map[string]any{
		"chain":     string(row.Chain),
		"address":   row.Address,
		"symbol":    row.Symbol,
		"period_id": row.PeriodID,
		"period": map[string]any{
			"seconds": p.Seconds,
			"blocks":  p.Blocks,
			"fees": map[string]any{
				"usd":       f(p.FeesUSD),
				"per_share": f(p.FeesPerShare),
				"yield":     f(p.FeesYield),
			},
			"rewards": map[string]any{
				"usd":   f(p.RewardsUSD),
				"yield": f(p.RewardsYield),
			},
			"impermanent": map[string]any{
				"usd":   f(p.ImpermanentUSD),
				"yield": f(p.ImpermanentYield),
			},
			"hypervisor_roi": map[string]any{
				"qtty_usd":  f(p.HypeROIQttyUSD),
				"per_share": f(p.HypeROIPerShare),
				"yield":     f(p.HypeROIYield),
			},
			"net_roi": map[string]any{"yield": f(p.NetROIYield)},
		},
		"cumulative": map[string]any{
			"seconds":   c.Seconds,
			"blocks":    c.Blocks,
			"fees_qtty": pairView(c.FeesQtty),
			"fees": map[string]any{
				"usd":       f(c.FeesUSD),
				"per_share": f(c.FeesPerShare),
				"yield":     f(c.FeesYield),
			},
			"rewards": map[string]any{
				"usd":       f(c.RewardsUSD),
				"per_share": f(c.RewardsPerShare),
				"yield":     f(c.RewardsYield),
			},
			"impermanent": map[string]any{
				"usd":       f(c.ImpermanentUSD),
				"per_share": f(c.ImpermanentPerShare),
				"yield":     f(c.ImpermanentYield),
			},
			"hypervisor_roi": map[string]any{
				"qtty_usd":  f(c.HypeROIQttyUSD),
				"per_share": f(c.HypeROIPerShare),
				"yield":     f(c.HypeROIYield),
			},
			"net_roi":              map[string]any{"yield": f(c.NetROIYield)},
			"rebalance_divergence": pairView(c.RebalanceDivergence),
		},
		"annualized": map[string]any{
			"fees":           f(a.FeesYield),
			"rewards":        f(a.RewardsYield),
			"impermanent":    f(a.ImpermanentYield),
			"hypervisor_roi": f(a.HypeROIYield),
			"net_roi":        f(a.NetROIYield),
		},
		"status": map[string]any{
			"ini": snapshotMap(row.Ini),
			"end": snapshotMap(row.End),
		},
		"hold": holds,
	}
	for k, v := range legacyFields(row) {
		out[k] = v
	}
	return out
}

// SimpleView projects a row into the flat legacy shape.
func SimpleView(row Row) map[string]any {
	out := legacyFields(row)
	out["chain"] = string(row.Chain)
	out["address"] = row.Address
	out["symbol"] = row.Symbol
	return out
}

// legacyFields are the flat names existing consumers read.
func legacyFields(row Row) map[string]any {
	var datetime string
	if dt := (domain.TimeLocation{Timestamp: row.End.Timestamp}).Datetime(); dt != nil {
		datetime = dt.Format(time.RFC3339)
	}
	out := map[string]any{
		"timestamp":        row.End.Timestamp,
		"block":            row.End.Block,
		"datetime":         datetime,
		"period_seconds":   row.Period.Seconds,
		"seconds":          row.Cumulative.Seconds,
		"price_per_share":  f(row.End.PricePerShare),
		"tvl":              f(row.End.UnderlyingUSD),
		"feeYield":         f(row.Cumulative.FeesYield),
		"rewardsYield":     f(row.Cumulative.RewardsYield),
		"impermanentYield": f(row.Cumulative.ImpermanentYield),
		"hypervisorYield":  f(row.Cumulative.HypeROIYield),
		"netYield":         f(row.Cumulative.NetROIYield),
		"feeApr":           f(row.Annualized.FeesYield),
		"rewardsApr":       f(row.Annualized.RewardsYield),
		"impermanentApr":   f(row.Annualized.ImpermanentYield),
		"hypervisorApr":    f(row.Annualized.HypeROIYield),
		"netApr":           f(row.Annualized.NetROIYield),
	}
	for _, h := range row.Holds {
		out["hodl_"+h.Strategy+"_yield"] = f(h.Yield)
		out["net_vs_hodl_"+h.Strategy] = f(h.Outperformance)
	}
	return out
}

// SummaryView projects a summary into its output shape.
func SummaryView(s Summary) map[string]any {
	holds := make(map[string]any, len(s.Holds))
	for _, h := range s.Holds {
		holds[h.Strategy] = map[string]any{
			"yield":          f(h.Yield),
			"annualized":     f(h.Annualized),
			"outperformance": f(h.Outperformance),
		}
	}
	return map[string]any{
		"chain":         string(s.Chain),
		"address":       s.Address,
		"symbol":        s.Symbol,
		"periods":       s.Periods,
		"dropped":       s.Dropped,
		"start":         s.Start.ToMap(),
		"end":           s.End.ToMap(),
		"seconds":       s.Cumulative.Seconds,
		"baseline_pps":  f(s.BaselinePPS),
		"final_pps":     f(s.FinalPPS),
		"feeYield":      f(s.Cumulative.FeesYield),
		"rewardsYield":  f(s.Cumulative.RewardsYield),
		"netYield":      f(s.Cumulative.NetROIYield),
		"feeApr":        f(s.Annualized.FeesYield),
		"rewardsApr":    f(s.Annualized.RewardsYield),
		"hypervisorApr": f(s.Annualized.HypeROIYield),
		"netApr":        f(s.Annualized.NetROIYield),
		"hold":          holds,
		"reward_tokens": s.RewardTokens,
	}
}
