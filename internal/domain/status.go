package domain

import (
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"
)

// StatusSnapshot is the hypervisor state at one time boundary.
type StatusSnapshot struct {
	Prices     TokenPairAmount `json:"prices"`
	Underlying UnderlyingValue `json:"underlying"`
	Supply     decimal.Decimal `json:"supply"`
}

// UnderlyingUSD values the full underlying position at the snapshot prices.
func (s StatusSnapshot) UnderlyingUSD() decimal.Decimal {
	return s.Underlying.Qtty.USD(s.Prices)
}

// PricePerShare is UnderlyingUSD / Supply, zero when supply is unknown.
func (s StatusSnapshot) PricePerShare() decimal.Decimal {
	return SafeDiv(s.UnderlyingUSD(), s.Supply)
}

// QttyPerShare is the redeemable token quantity behind a single share.
func (s StatusSnapshot) QttyPerShare() TokenPairAmount {
	return s.Underlying.Qtty.Div(s.Supply)
}

func (s StatusSnapshot) ToMap() map[string]any {
	return map[string]any{
		"prices":     s.Prices.ToMap(),
		"underlying": s.Underlying.ToMap(),
		"supply":     s.Supply.String(),
	}
}

func StatusSnapshotFromMap(m map[string]any) (StatusSnapshot, error) {
	prices, err := TokenPairAmountFromMap(subMap(m, "prices"))
	if err != nil {
		return StatusSnapshot{}, fmt.Errorf("prices: %w", err)
	}
	underlying, err := UnderlyingValueFromMap(subMap(m, "underlying"))
	if err != nil {
		return StatusSnapshot{}, err
	}
	supply, err := decimalField(m, "supply")
	if err != nil {
		return StatusSnapshot{}, err
	}
	return StatusSnapshot{Prices: prices, Underlying: underlying, Supply: supply}, nil
}

func (s StatusSnapshot) Equal(o StatusSnapshot) bool {
	return s.Prices.Equal(o.Prices) &&
		s.Underlying.Qtty.Equal(o.Underlying.Qtty) &&
		reflect.DeepEqual(s.Underlying.Details, o.Underlying.Details) &&
		s.Supply.Equal(o.Supply)
}

// PeriodStatus pairs the opening and closing snapshots of a period.
type PeriodStatus struct {
	Ini StatusSnapshot `json:"ini"`
	End StatusSnapshot `json:"end"`
}

// SupplyDifference is end.supply - ini.supply.
func (p PeriodStatus) SupplyDifference() decimal.Decimal {
	return p.End.Supply.Sub(p.Ini.Supply)
}

func (p PeriodStatus) ToMap() map[string]any {
	return map[string]any{
		"ini": p.Ini.ToMap(),
		"end": p.End.ToMap(),
	}
}

func PeriodStatusFromMap(m map[string]any) (PeriodStatus, error) {
	ini, err := StatusSnapshotFromMap(subMap(m, "ini"))
	if err != nil {
		return PeriodStatus{}, fmt.Errorf("status ini: %w", err)
	}
	end, err := StatusSnapshotFromMap(subMap(m, "end"))
	if err != nil {
		return PeriodStatus{}, fmt.Errorf("status end: %w", err)
	}
	return PeriodStatus{Ini: ini, End: end}, nil
}
