package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders hypervisor metrics as CSV string.
func RenderCSV(metrics []HypervisorMetricRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("chain,address,symbol,periods,dropped,seconds,")
	sb.WriteString("fees_yield,rewards_yield,net_yield,fees_apr,rewards_apr,hypervisor_apr,net_apr,")
	sb.WriteString("positive_rate,median,p10,p90,max_drawdown,max_losing_streak\n")

	// Rows
	for _, m := range metrics {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%d\n",
			m.Chain,
			m.Address,
			m.Symbol,
			m.Periods,
			m.Dropped,
			m.Seconds,
			m.FeesYield,
			m.RewardsYield,
			m.NetYield,
			m.FeesAPR,
			m.RewardsAPR,
			m.HypervisorAPR,
			m.NetAPR,
			m.PositiveRate,
			m.Median,
			m.P10,
			m.P90,
			m.MaxDrawdown,
			m.MaxLosingStreak,
		))
	}

	return sb.String()
}
