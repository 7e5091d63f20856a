package reporting

import "time"

// Report is the portfolio-wide yield report.
type Report struct {
	GeneratedAt     time.Time
	HypervisorCount int
	ChainCount      int

	DataSummary DataSummary
	DataQuality DataQualitySection

	// Sorted by chain, address
	HypervisorMetrics []HypervisorMetricRow
	HoldComparison    []HoldComparisonRow
	Rewards           []RewardRow
}

// DataSummary describes the analyzed data.
type DataSummary struct {
	TotalPeriods   int
	DroppedPeriods int
	Analyzed       int
	Failed         int
	DateRangeStart int64 // unix seconds
	DateRangeEnd   int64 // unix seconds
}

// DataQualitySection lists filter drops and analysis failures.
type DataQualitySection struct {
	DroppedByReason []DropCountRow
	Failures        []FailureRow
	AllAnalyzed     bool
}

// DropCountRow counts records excluded for one reason.
type DropCountRow struct {
	Reason string
	Count  int
}

// FailureRow is a hypervisor that could not be analyzed.
type FailureRow struct {
	Chain   string
	Address string
	Error   string
}

// HypervisorMetricRow is one row in the hypervisor metrics table.
type HypervisorMetricRow struct {
	Chain         string
	Address       string
	Symbol        string
	Periods       int
	Dropped       int
	Seconds       int64
	FeesYield     float64
	RewardsYield  float64
	NetYield      float64
	FeesAPR       float64
	RewardsAPR    float64
	HypervisorAPR float64
	NetAPR        float64

	// Period net yield distribution
	PositiveRate    float64
	Median          float64
	P10             float64
	P90             float64
	MaxDrawdown     float64
	MaxLosingStreak int
}

// HoldComparisonRow compares the net ROI with one hold strategy.
type HoldComparisonRow struct {
	Chain          string
	Address        string
	Strategy       string
	HoldYield      float64
	NetYield       float64
	Outperformance float64
}

// RewardRow is one reward token total of a hypervisor.
type RewardRow struct {
	Chain   string
	Address string
	Symbol  string
	Qtty    string
	USD     float64
	Periods int
}
