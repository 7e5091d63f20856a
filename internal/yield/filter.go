package yield

import (
	"go.uber.org/zap"

	"hypervisor-analytics/internal/config"
	"hypervisor-analytics/internal/domain"
)

// DropReason explains why a record was excluded from the fold.
type DropReason string

// Drop reasons.
const (
	DropZeroSeconds        DropReason = "zero_seconds"
	DropInvalidTimeframe   DropReason = "invalid_timeframe"
	DropZeroIniSupply      DropReason = "zero_ini_supply"
	DropZeroIniUnderlying  DropReason = "zero_ini_underlying"
	DropZeroEndSupply      DropReason = "zero_end_supply"
	DropImpermanentOutlier DropReason = "impermanent_outlier"
	DropRewardsOutlier     DropReason = "rewards_outlier"
	DropFeesOutlier        DropReason = "fees_outlier"
)

// Dropped is a record excluded by the outlier filter.
type Dropped struct {
	ID     string
	Reason DropReason
}

// dropReason returns the first rule a record breaks, or "" when it is kept.
func dropReason(rec *domain.PeriodRecord, cfg config.AnalyzerConfig) DropReason {
	if !rec.Timeframe.Valid() {
		return DropInvalidTimeframe
	}
	if rec.Seconds() == 0 {
		return DropZeroSeconds
	}
	// Every yield is relative to the opening price per share, so a period
	// opening on an empty vault (or an unpriced one) has no defined return.
	ini := rec.Status.Ini
	if !ini.Supply.IsPositive() {
		return DropZeroIniSupply
	}
	if !ini.UnderlyingUSD().IsPositive() {
		return DropZeroIniUnderlying
	}
	if !rec.Status.End.Supply.IsPositive() {
		return DropZeroEndSupply
	}
	v := computePeriod(rec)
	if v.ImpermanentYield().Abs().GreaterThan(cfg.ImpermanentCap) {
		return DropImpermanentOutlier
	}
	if v.RewardsToUnderlying().GreaterThan(cfg.RewardsCap) {
		return DropRewardsOutlier
	}
	if rec.Fees.PeriodYield.GreaterThan(cfg.FeeCap) {
		return DropFeesOutlier
	}
	return ""
}

// filterRecords splits records into kept and dropped. Input order is preserved.
func filterRecords(records []*domain.PeriodRecord, cfg config.AnalyzerConfig, logger *zap.Logger) ([]*domain.PeriodRecord, []Dropped) {
	kept := make([]*domain.PeriodRecord, 0, len(records))
	var dropped []Dropped
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if reason := dropReason(rec, cfg); reason != "" {
			logger.Debug("period excluded",
				zap.String("period_id", rec.ID()),
				zap.String("reason", string(reason)),
			)
			dropped = append(dropped, Dropped{ID: rec.ID(), Reason: reason})
			continue
		}
		kept = append(kept, rec)
	}
	return kept, dropped
}
