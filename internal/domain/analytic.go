package domain

import "github.com/shopspring/decimal"

// AnalyticRow is the persisted form of one yield analytic row.
// Corresponds to analytic_rows table in ClickHouse.
type AnalyticRow struct {
	Chain        string
	Address      string
	PeriodID     string
	IniBlock     int64
	EndBlock     int64
	IniTimestamp int64
	EndTimestamp int64
	Seconds      int64 // cumulative seconds since baseline

	PeriodFeesUSD        float64
	PeriodImpermanentUSD float64
	PeriodRewardsUSD     float64
	PeriodNetYield       float64

	FeesYield        float64
	RewardsYield     float64
	ImpermanentYield float64
	HypervisorYield  float64
	NetYield         float64

	FeesAPR        float64
	RewardsAPR     float64
	ImpermanentAPR float64
	HypervisorAPR  float64
	NetAPR         float64

	PricePerShare float64
	TVLUSD        float64

	HoldDepositedYield  float64
	HoldFiftyFiftyYield float64
	HoldToken0Yield     float64
	HoldToken1Yield     float64

	ComputedAt int64 // unix seconds
}

// RewardShare is the persisted TWA participation of one user in a window.
// Corresponds to reward_shares table in ClickHouse.
type RewardShare struct {
	WindowID               string
	Chain                  string
	Hypervisor             string
	Unit                   string // "blocks" | "seconds"
	WindowStart            int64
	WindowEnd              int64
	User                   string
	TimeWeightedValue      decimal.Decimal
	TimeWeightedPercentage decimal.Decimal
	WindowShare            decimal.Decimal
	ComputedAt             int64 // unix seconds
}
