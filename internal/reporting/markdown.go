package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Hypervisor Yield Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Hypervisors: %d | Chains: %d\n\n", r.HypervisorCount, r.ChainCount))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Analyzed | %d |\n", r.DataSummary.Analyzed))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", r.DataSummary.Failed))
	sb.WriteString(fmt.Sprintf("| Periods | %d |\n", r.DataSummary.TotalPeriods))
	sb.WriteString(fmt.Sprintf("| Dropped Periods | %d |\n", r.DataSummary.DroppedPeriods))
	sb.WriteString(fmt.Sprintf("| Date Range Start | %s |\n", formatUnix(r.DataSummary.DateRangeStart)))
	sb.WriteString(fmt.Sprintf("| Date Range End | %s |\n", formatUnix(r.DataSummary.DateRangeEnd)))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.DroppedByReason) > 0 {
		sb.WriteString("### Filtered Periods\n\n")
		sb.WriteString("| Reason | Count |\n")
		sb.WriteString("|--------|-------|\n")
		for _, d := range r.DataQuality.DroppedByReason {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", d.Reason, d.Count))
		}
		sb.WriteString("\n")
	}
	if len(r.DataQuality.Failures) > 0 {
		sb.WriteString("### Failures\n\n")
		for _, f := range r.DataQuality.Failures {
			sb.WriteString(fmt.Sprintf("- %s/%s: %s\n", f.Chain, f.Address, f.Error))
		}
		sb.WriteString("\n")
	}
	if r.DataQuality.AllAnalyzed {
		sb.WriteString("**All hypervisors analyzed.**\n\n")
	}

	// Hypervisor Metrics
	sb.WriteString("## Hypervisor Metrics\n\n")
	if len(r.HypervisorMetrics) > 0 {
		sb.WriteString("| Chain | Hypervisor | Symbol | Periods | Dropped | FeeYield | NetYield | FeeAPR | RewardsAPR | HypeAPR | NetAPR | Positive | Median | P10 | P90 | MaxDD | MaxLoss |\n")
		sb.WriteString("|-------|------------|--------|---------|---------|----------|----------|--------|------------|---------|--------|----------|--------|-----|-----|-------|---------|\n")
		for _, m := range r.HypervisorMetrics {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.6f | %.6f | %.6f | %.4f | %d |\n",
				m.Chain, m.Address, m.Symbol, m.Periods, m.Dropped,
				m.FeesYield, m.NetYield, m.FeesAPR, m.RewardsAPR, m.HypervisorAPR, m.NetAPR,
				m.PositiveRate, m.Median, m.P10, m.P90, m.MaxDrawdown, m.MaxLosingStreak))
		}
	} else {
		sb.WriteString("No hypervisor metrics available.\n")
	}
	sb.WriteString("\n")

	// Hold comparison
	sb.WriteString("## Net ROI vs Hold\n\n")
	if len(r.HoldComparison) > 0 {
		sb.WriteString("| Chain | Hypervisor | Strategy | Hold | Net | Outperformance |\n")
		sb.WriteString("|-------|------------|----------|------|-----|----------------|\n")
		for _, h := range r.HoldComparison {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.4f | %.4f | %.4f |\n",
				h.Chain, h.Address, h.Strategy, h.HoldYield, h.NetYield, h.Outperformance))
		}
	} else {
		sb.WriteString("No hold comparison available.\n")
	}
	sb.WriteString("\n")

	// Rewards
	sb.WriteString("## Rewards\n\n")
	if len(r.Rewards) > 0 {
		sb.WriteString("| Chain | Hypervisor | Token | Qtty | USD | Periods |\n")
		sb.WriteString("|-------|------------|-------|------|-----|---------|\n")
		for _, rw := range r.Rewards {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.2f | %d |\n",
				rw.Chain, rw.Address, rw.Symbol, rw.Qtty, rw.USD, rw.Periods))
		}
	} else {
		sb.WriteString("No rewards.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatUnix(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
