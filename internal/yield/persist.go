package yield

import "hypervisor-analytics/internal/domain"

// AnalyticRows converts the series into its persisted form.
func (r *Result) AnalyticRows(computedAt int64) []*domain.AnalyticRow {
	out := make([]*domain.AnalyticRow, len(r.rows))
	for i, row := range r.rows {
		out[i] = ToAnalyticRow(row, computedAt)
	}
	return out
}

// ToAnalyticRow flattens one row for columnar storage.
func ToAnalyticRow(row Row, computedAt int64) *domain.AnalyticRow {
	return &domain.AnalyticRow{
		Chain:        string(row.Chain),
		Address:      row.Address,
		PeriodID:     row.PeriodID,
		IniBlock:     row.Ini.Block,
		EndBlock:     row.End.Block,
		IniTimestamp: row.Ini.Timestamp,
		EndTimestamp: row.End.Timestamp,
		Seconds:      row.Cumulative.Seconds,

		PeriodFeesUSD:        f(row.Period.FeesUSD),
		PeriodImpermanentUSD: f(row.Period.ImpermanentUSD),
		PeriodRewardsUSD:     f(row.Period.RewardsUSD),
		PeriodNetYield:       f(row.Period.NetROIYield),

		FeesYield:        f(row.Cumulative.FeesYield),
		RewardsYield:     f(row.Cumulative.RewardsYield),
		ImpermanentYield: f(row.Cumulative.ImpermanentYield),
		HypervisorYield:  f(row.Cumulative.HypeROIYield),
		NetYield:         f(row.Cumulative.NetROIYield),

		FeesAPR:        f(row.Annualized.FeesYield),
		RewardsAPR:     f(row.Annualized.RewardsYield),
		ImpermanentAPR: f(row.Annualized.ImpermanentYield),
		HypervisorAPR:  f(row.Annualized.HypeROIYield),
		NetAPR:         f(row.Annualized.NetROIYield),

		PricePerShare: f(row.End.PricePerShare),
		TVLUSD:        f(row.End.UnderlyingUSD),

		HoldDepositedYield:  f(row.Hold(HoldDeposited).Yield),
		HoldFiftyFiftyYield: f(row.Hold(HoldFiftyFifty).Yield),
		HoldToken0Yield:     f(row.Hold(HoldToken0).Yield),
		HoldToken1Yield:     f(row.Hold(HoldToken1).Yield),

		ComputedAt: computedAt,
	}
}
