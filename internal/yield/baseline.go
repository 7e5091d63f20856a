package yield

import (
	"github.com/shopspring/decimal"

	"hypervisor-analytics/internal/domain"
)

// Baseline is the reference state every cumulative yield is measured against.
type Baseline struct {
	Start  domain.TimeLocation
	End    domain.TimeLocation
	PPS    decimal.Decimal
	Prices domain.TokenPairAmount
	Supply decimal.Decimal

	// Deposited is the per-share token quantity at Start. Holding it
	// unchanged is the hold-deposited comparison.
	Deposited domain.TokenPairAmount
}

// seedBaseline scans records without assuming order for the earliest opening
// and latest closing boundaries.
func seedBaseline(records []*domain.PeriodRecord) Baseline {
	if len(records) == 0 {
		return Baseline{}
	}
	first, last := records[0], records[0]
	for _, rec := range records[1:] {
		if earlier(rec.Timeframe.Ini, first.Timeframe.Ini) {
			first = rec
		}
		if earlier(last.Timeframe.End, rec.Timeframe.End) {
			last = rec
		}
	}

	ini := first.Status.Ini
	return Baseline{
		Start:     first.Timeframe.Ini,
		End:       last.Timeframe.End,
		PPS:       ini.PricePerShare(),
		Prices:    ini.Prices,
		Supply:    ini.Supply,
		Deposited: ini.QttyPerShare(),
	}
}

func earlier(a, b domain.TimeLocation) bool {
	if a.Block != b.Block {
		return a.Block < b.Block
	}
	return a.Timestamp < b.Timestamp
}

// Hold comparison strategies.
const (
	HoldDeposited  = "deposited"
	HoldFiftyFifty = "fifty_fifty"
	HoldToken0     = "token0"
	HoldToken1     = "token1"
)

// HoldStrategies lists hold comparisons in output order.
var HoldStrategies = []string{HoldDeposited, HoldFiftyFifty, HoldToken0, HoldToken1}

// holdQtty returns the per-share token quantity each hold strategy keeps,
// bought at baseline prices for baseline price per share.
func (b Baseline) holdQtty(strategy string) domain.TokenPairAmount {
	half := b.PPS.Div(decimal.NewFromInt(2))
	switch strategy {
	case HoldDeposited:
		return b.Deposited
	case HoldFiftyFifty:
		return domain.NewTokenPairAmount(domain.SafeDiv(half, b.Prices.Token0), domain.SafeDiv(half, b.Prices.Token1))
	case HoldToken0:
		return domain.NewTokenPairAmount(domain.SafeDiv(b.PPS, b.Prices.Token0), decimal.Zero)
	case HoldToken1:
		return domain.NewTokenPairAmount(decimal.Zero, domain.SafeDiv(b.PPS, b.Prices.Token1))
	}
	return domain.TokenPairAmount{}
}

// HoldYield is the return of a hold strategy valued at prices.
func (b Baseline) HoldYield(strategy string, prices domain.TokenPairAmount) decimal.Decimal {
	if b.PPS.IsZero() {
		return decimal.Zero
	}
	value := b.holdQtty(strategy).USD(prices)
	return value.Div(b.PPS).Sub(decimal.NewFromInt(1))
}
