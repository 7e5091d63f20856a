package domain

import (
	"fmt"
)

// PeriodRecord is the reconciled snapshot of one hypervisor between two
// composition-changing events. Records are produced upstream and never mutated.
type PeriodRecord struct {
	Address             string           `json:"address"`
	Timeframe           PeriodTimeframe  `json:"timeframe"`
	Status              PeriodStatus     `json:"status"`
	Fees                YieldAmount      `json:"fees"`
	FeesGamma           YieldAmount      `json:"fees_gamma"`
	Rewards             RewardsBreakdown `json:"rewards"`
	FeesCollectedWithin YieldAmount      `json:"fees_collected_within"`
	RebalanceDivergence TokenPairAmount  `json:"rebalance_divergence"`
}

// ID returns the record identity: address + ini.block + end.block.
func (p *PeriodRecord) ID() string {
	return fmt.Sprintf("%s_%d_%d", p.Address, p.Timeframe.Ini.Block, p.Timeframe.End.Block)
}

// Seconds is a shortcut for Timeframe.Seconds().
func (p *PeriodRecord) Seconds() int64 {
	return p.Timeframe.Seconds()
}

// ToMap converts the record to the nested key/value shape produced upstream.
func (p *PeriodRecord) ToMap() map[string]any {
	return map[string]any{
		"address":               p.Address,
		"timeframe":             p.Timeframe.ToMap(),
		"status":                p.Status.ToMap(),
		"fees":                  p.Fees.ToMap(),
		"fees_gamma":            p.FeesGamma.ToMap(),
		"rewards":               p.Rewards.ToMap(),
		"fees_collected_within": p.FeesCollectedWithin.ToMap(),
		"rebalance_divergence":  p.RebalanceDivergence.ToMap(),
	}
}

// PeriodRecordFromMap parses a record. Missing sections parse as zero so a
// partially populated record still reaches the analyzer. The address is kept
// as given; callers at the system edge normalize it.
func PeriodRecordFromMap(m map[string]any) (*PeriodRecord, error) {
	addr, err := stringField(m, "address")
	if err != nil {
		return nil, err
	}

	rec := &PeriodRecord{Address: addr}
	if rec.Timeframe, err = PeriodTimeframeFromMap(subMap(m, "timeframe")); err != nil {
		return nil, fmt.Errorf("timeframe: %w", err)
	}
	if rec.Status, err = PeriodStatusFromMap(subMap(m, "status")); err != nil {
		return nil, err
	}
	if rec.Fees, err = YieldAmountFromMap(subMap(m, "fees")); err != nil {
		return nil, fmt.Errorf("fees: %w", err)
	}
	if rec.FeesGamma, err = YieldAmountFromMap(subMap(m, "fees_gamma")); err != nil {
		return nil, fmt.Errorf("fees_gamma: %w", err)
	}
	if rec.Rewards, err = RewardsBreakdownFromMap(subMap(m, "rewards")); err != nil {
		return nil, fmt.Errorf("rewards: %w", err)
	}
	if rec.FeesCollectedWithin, err = YieldAmountFromMap(subMap(m, "fees_collected_within")); err != nil {
		return nil, fmt.Errorf("fees_collected_within: %w", err)
	}
	if rec.RebalanceDivergence, err = TokenPairAmountFromMap(subMap(m, "rebalance_divergence")); err != nil {
		return nil, fmt.Errorf("rebalance_divergence: %w", err)
	}
	return rec, nil
}

// Equal compares two records field by field using decimal value equality.
func (p *PeriodRecord) Equal(o *PeriodRecord) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Address == o.Address &&
		p.Timeframe == o.Timeframe &&
		p.Status.Ini.Equal(o.Status.Ini) &&
		p.Status.End.Equal(o.Status.End) &&
		p.Fees.Equal(o.Fees) &&
		p.FeesGamma.Equal(o.FeesGamma) &&
		p.Rewards.Equal(o.Rewards) &&
		p.FeesCollectedWithin.Equal(o.FeesCollectedWithin) &&
		p.RebalanceDivergence.Equal(o.RebalanceDivergence)
}

// ComparePeriodRecords orders records by ini block, end block, ini timestamp, address.
func ComparePeriodRecords(a, b *PeriodRecord) int {
	switch {
	case a.Timeframe.Ini.Block != b.Timeframe.Ini.Block:
		return cmpInt64(a.Timeframe.Ini.Block, b.Timeframe.Ini.Block)
	case a.Timeframe.End.Block != b.Timeframe.End.Block:
		return cmpInt64(a.Timeframe.End.Block, b.Timeframe.End.Block)
	case a.Timeframe.Ini.Timestamp != b.Timeframe.Ini.Timestamp:
		return cmpInt64(a.Timeframe.Ini.Timestamp, b.Timeframe.Ini.Timestamp)
	case a.Address < b.Address:
		return -1
	case a.Address > b.Address:
		return 1
	}
	return 0
}

func cmpInt64(a, b int64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
