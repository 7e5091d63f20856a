package yield

import (
	"github.com/shopspring/decimal"

	"hypervisor-analytics/internal/config"
	"hypervisor-analytics/internal/domain"
)

// State is the running accumulator of the sequential fold. It holds raw sums
// only; yields and annualized figures are derived when a row is emitted.
type State struct {
	Periods int
	Seconds int64
	Blocks  int64

	FeesQtty          domain.TokenPairAmount
	FeesGammaQtty     domain.TokenPairAmount
	FeesCollectedQtty domain.TokenPairAmount
	FeesUSD           decimal.Decimal
	FeesPerShare      decimal.Decimal

	RewardsUSD      decimal.Decimal
	RewardsPerShare decimal.Decimal

	ImpermanentUSD      decimal.Decimal
	ImpermanentPerShare decimal.Decimal

	HypeROIQttyUSD  decimal.Decimal
	HypeROIPerShare decimal.Decimal

	// HypeROIYield accumulates each period's per-share price delta over the
	// baseline price per share. Times the deposited value it must match
	// TokenROI when the fold completes.
	HypeROIYield decimal.Decimal

	// TokenROIUSD holds the per-token ROI of closed runs. A run is a stretch
	// of periods where each one opens at the block the previous one closed;
	// its ROI is taken from the run's first opening and last closing
	// snapshots only.
	TokenROIUSD domain.TokenPairAmount
	run         tokenRun

	RebalanceDivergence domain.TokenPairAmount
}

// Step folds one filtered period into the state.
func Step(s State, rec *domain.PeriodRecord, base Baseline) State {
	v := computePeriod(rec)

	s.Periods++
	s.Seconds += v.Seconds
	s.Blocks += v.Blocks

	s.FeesQtty = s.FeesQtty.Add(rec.Fees.Qtty)
	s.FeesGammaQtty = s.FeesGammaQtty.Add(rec.FeesGamma.Qtty)
	s.FeesCollectedQtty = s.FeesCollectedQtty.Add(rec.FeesCollectedWithin.Qtty)
	s.FeesUSD = s.FeesUSD.Add(v.FeesUSD)
	s.FeesPerShare = s.FeesPerShare.Add(v.FeesPerShare)

	s.RewardsUSD = s.RewardsUSD.Add(v.RewardsUSD)
	s.RewardsPerShare = s.RewardsPerShare.Add(v.RewardsPerShare)

	s.ImpermanentUSD = s.ImpermanentUSD.Add(v.ImpermanentUSD)
	s.ImpermanentPerShare = s.ImpermanentPerShare.Add(v.ImpermanentPerShare)

	s.HypeROIQttyUSD = s.HypeROIQttyUSD.Add(v.HypeROIQttyUSD)
	s.HypeROIPerShare = s.HypeROIPerShare.Add(v.HypeROIPerShare)
	s.HypeROIYield = s.HypeROIYield.Add(domain.SafeDiv(v.HypeROIPerShare, base.PPS))
	if s.run.open && rec.Timeframe.Ini.Block != s.run.end.Block {
		s.TokenROIUSD = s.TokenROIUSD.Add(s.run.roi())
		s.run = tokenRun{}
	}
	if !s.run.open {
		s.run = tokenRun{open: true, ini: rec.Status.Ini}
	}
	s.run.end = rec.Timeframe.End
	s.run.close = rec.Status.End

	s.RebalanceDivergence = s.RebalanceDivergence.Add(rec.RebalanceDivergence)
	return s
}

type tokenRun struct {
	open  bool
	ini   domain.StatusSnapshot
	end   domain.TimeLocation
	close domain.StatusSnapshot
}

// roi is the per-share USD change of each token over the run: the quantity
// change valued at closing prices plus the repricing of the opening quantity.
func (r tokenRun) roi() domain.TokenPairAmount {
	iniQtty, endQtty := r.ini.QttyPerShare(), r.close.QttyPerShare()
	delta := endQtty.Sub(iniQtty).Priced(r.close.Prices)
	repricing := iniQtty.Priced(r.close.Prices.Sub(r.ini.Prices))
	return delta.Add(repricing)
}

// TokenROI is the per-token ROI of every run including the open one.
func (s State) TokenROI() domain.TokenPairAmount {
	if !s.run.open {
		return s.TokenROIUSD
	}
	return s.TokenROIUSD.Add(s.run.roi())
}

// Cumulative yields are relative to the baseline price per share.

func (s State) FeesYield(base Baseline) decimal.Decimal {
	return domain.SafeDiv(s.FeesPerShare, base.PPS)
}

func (s State) RewardsYield(base Baseline) decimal.Decimal {
	return domain.SafeDiv(s.RewardsPerShare, base.PPS)
}

func (s State) ImpermanentYield(base Baseline) decimal.Decimal {
	return domain.SafeDiv(s.ImpermanentPerShare, base.PPS)
}

// HypeROIYieldFromPerShare is hypervisor-only ROI: fees plus impermanent.
func (s State) HypeROIYieldFromPerShare(base Baseline) decimal.Decimal {
	return s.FeesYield(base).Add(s.ImpermanentYield(base))
}

// NetROIYield is hypervisor ROI plus rewards.
func (s State) NetROIYield(base Baseline) decimal.Decimal {
	return s.HypeROIYieldFromPerShare(base).Add(s.RewardsYield(base))
}

var secondsPerYear = decimal.NewFromInt(config.SecondsPerYear)

// Annualize extrapolates a value earned over seconds to one year.
// Multiplication happens first so one full year returns v unchanged.
func Annualize(v decimal.Decimal, seconds int64) decimal.Decimal {
	if seconds <= 0 {
		return decimal.Zero
	}
	return v.Mul(secondsPerYear).Div(decimal.NewFromInt(seconds))
}
