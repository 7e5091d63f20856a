package yield

import (
	"github.com/shopspring/decimal"

	"hypervisor-analytics/internal/domain"
)

// periodValues are the derived quantities of a single PeriodRecord.
// Per-share figures use the supply of the snapshot they are priced at; period
// quantities (fees, rewards) are spread over the closing supply.
type periodValues struct {
	Seconds int64
	Blocks  int64

	IniPPS           decimal.Decimal
	EndPPS           decimal.Decimal
	IniUnderlyingUSD decimal.Decimal
	EndUnderlyingUSD decimal.Decimal

	FeesUSD      decimal.Decimal
	FeesPerShare decimal.Decimal

	RewardsUSD      decimal.Decimal
	RewardsPerShare decimal.Decimal

	HypeROIPerShare decimal.Decimal
	HypeROIQttyUSD  decimal.Decimal

	ImpermanentPerShare decimal.Decimal
	ImpermanentUSD      decimal.Decimal
}

func computePeriod(rec *domain.PeriodRecord) periodValues {
	ini, end := rec.Status.Ini, rec.Status.End

	v := periodValues{
		Seconds:          rec.Timeframe.Seconds(),
		Blocks:           rec.Timeframe.Blocks(),
		IniPPS:           ini.PricePerShare(),
		EndPPS:           end.PricePerShare(),
		IniUnderlyingUSD: ini.UnderlyingUSD(),
		EndUnderlyingUSD: end.UnderlyingUSD(),
		FeesUSD:          rec.Fees.Qtty.USD(end.Prices),
		RewardsUSD:       rec.Rewards.USD,
	}
	v.FeesPerShare = domain.SafeDiv(v.FeesUSD, end.Supply)
	v.RewardsPerShare = domain.SafeDiv(v.RewardsUSD, end.Supply)

	v.HypeROIPerShare = v.EndPPS.Sub(v.IniPPS)
	v.HypeROIQttyUSD = v.HypeROIPerShare.Mul(end.Supply)
	v.ImpermanentPerShare = v.HypeROIPerShare.Sub(v.FeesPerShare)
	v.ImpermanentUSD = v.HypeROIQttyUSD.Sub(v.FeesUSD)

	return v
}

// Period yields are relative to the opening price per share.

func (v periodValues) FeesYield() decimal.Decimal {
	return domain.SafeDiv(v.FeesPerShare, v.IniPPS)
}

func (v periodValues) RewardsYield() decimal.Decimal {
	return domain.SafeDiv(v.RewardsPerShare, v.IniPPS)
}

func (v periodValues) ImpermanentYield() decimal.Decimal {
	return domain.SafeDiv(v.ImpermanentPerShare, v.IniPPS)
}

func (v periodValues) HypeROIYield() decimal.Decimal {
	return domain.SafeDiv(v.HypeROIPerShare, v.IniPPS)
}

func (v periodValues) NetROIYield() decimal.Decimal {
	return v.HypeROIYield().Add(v.RewardsYield())
}

// RewardsToUnderlying is rewards USD over the opening underlying USD.
func (v periodValues) RewardsToUnderlying() decimal.Decimal {
	return domain.SafeDiv(v.RewardsUSD, v.IniUnderlyingUSD)
}
