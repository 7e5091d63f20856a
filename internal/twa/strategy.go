package twa

import (
	"github.com/shopspring/decimal"

	"hypervisor-analytics/internal/domain"
)

// WeightFunc converts a balance and the supply observed at the previous
// processed operation into the weight charged per unit of elapsed time.
type WeightFunc func(balance, supply decimal.Decimal) decimal.Decimal

// Strategy names a weighting of the fold.
type Strategy struct {
	Name   string
	Weight WeightFunc
}

// Absolute charges the raw share balance.
var Absolute = Strategy{
	Name: "absolute",
	Weight: func(balance, _ decimal.Decimal) decimal.Decimal {
		return balance
	},
}

// Percentage charges the balance as a fraction of total supply. A zero
// supply charges nothing.
var Percentage = Strategy{
	Name: "percentage",
	Weight: func(balance, supply decimal.Decimal) decimal.Decimal {
		return domain.SafeDiv(balance, supply)
	},
}
