package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TokenPairAmount holds one quantity per pool token.
type TokenPairAmount struct {
	Token0 decimal.Decimal `json:"token0"`
	Token1 decimal.Decimal `json:"token1"`
}

// NewTokenPairAmount builds a pair from two decimals.
func NewTokenPairAmount(token0, token1 decimal.Decimal) TokenPairAmount {
	return TokenPairAmount{Token0: token0, Token1: token1}
}

func (a TokenPairAmount) Add(b TokenPairAmount) TokenPairAmount {
	return TokenPairAmount{Token0: a.Token0.Add(b.Token0), Token1: a.Token1.Add(b.Token1)}
}

func (a TokenPairAmount) Sub(b TokenPairAmount) TokenPairAmount {
	return TokenPairAmount{Token0: a.Token0.Sub(b.Token0), Token1: a.Token1.Sub(b.Token1)}
}

// Mul multiplies both quantities by a scalar.
func (a TokenPairAmount) Mul(f decimal.Decimal) TokenPairAmount {
	return TokenPairAmount{Token0: a.Token0.Mul(f), Token1: a.Token1.Mul(f)}
}

// Div divides both quantities by a scalar. A zero divisor yields a zero pair.
func (a TokenPairAmount) Div(f decimal.Decimal) TokenPairAmount {
	return TokenPairAmount{Token0: SafeDiv(a.Token0, f), Token1: SafeDiv(a.Token1, f)}
}

// Priced multiplies each quantity by the matching token price.
func (a TokenPairAmount) Priced(prices TokenPairAmount) TokenPairAmount {
	return TokenPairAmount{Token0: a.Token0.Mul(prices.Token0), Token1: a.Token1.Mul(prices.Token1)}
}

// USD values the pair at the given per-token prices.
func (a TokenPairAmount) USD(prices TokenPairAmount) decimal.Decimal {
	return a.Token0.Mul(prices.Token0).Add(a.Token1.Mul(prices.Token1))
}

// Sum adds both quantities.
func (a TokenPairAmount) Sum() decimal.Decimal {
	return a.Token0.Add(a.Token1)
}

func (a TokenPairAmount) IsZero() bool {
	return a.Token0.IsZero() && a.Token1.IsZero()
}

func (a TokenPairAmount) Equal(b TokenPairAmount) bool {
	return a.Token0.Equal(b.Token0) && a.Token1.Equal(b.Token1)
}

// ToMap converts the pair to its generic key/value form. Decimals are strings.
func (a TokenPairAmount) ToMap() map[string]any {
	return map[string]any{
		"token0": a.Token0.String(),
		"token1": a.Token1.String(),
	}
}

// TokenPairAmountFromMap parses a pair. Missing tokens are zero.
func TokenPairAmountFromMap(m map[string]any) (TokenPairAmount, error) {
	t0, err := decimalField(m, "token0")
	if err != nil {
		return TokenPairAmount{}, err
	}
	t1, err := decimalField(m, "token1")
	if err != nil {
		return TokenPairAmount{}, err
	}
	return TokenPairAmount{Token0: t0, Token1: t1}, nil
}

// UnderlyingValue is the redeemable token quantity behind a share position.
type UnderlyingValue struct {
	Qtty    TokenPairAmount `json:"qtty"`
	Details map[string]any  `json:"details,omitempty"`
}

func (u UnderlyingValue) ToMap() map[string]any {
	m := map[string]any{"qtty": u.Qtty.ToMap()}
	if u.Details != nil {
		m["details"] = copyDetails(u.Details)
	}
	return m
}

func UnderlyingValueFromMap(m map[string]any) (UnderlyingValue, error) {
	qtty, err := TokenPairAmountFromMap(subMap(m, "qtty"))
	if err != nil {
		return UnderlyingValue{}, fmt.Errorf("underlying qtty: %w", err)
	}
	return UnderlyingValue{Qtty: qtty, Details: copyDetails(subMap(m, "details"))}, nil
}

// YieldAmount is a token quantity plus the yield it represents as a ratio.
type YieldAmount struct {
	Qtty        TokenPairAmount `json:"qtty"`
	PeriodYield decimal.Decimal `json:"period_yield"`
}

func (y YieldAmount) ToMap() map[string]any {
	return map[string]any{
		"qtty":         y.Qtty.ToMap(),
		"period_yield": y.PeriodYield.String(),
	}
}

func YieldAmountFromMap(m map[string]any) (YieldAmount, error) {
	qtty, err := TokenPairAmountFromMap(subMap(m, "qtty"))
	if err != nil {
		return YieldAmount{}, err
	}
	py, err := decimalField(m, "period_yield")
	if err != nil {
		return YieldAmount{}, err
	}
	return YieldAmount{Qtty: qtty, PeriodYield: py}, nil
}

func (y YieldAmount) Equal(o YieldAmount) bool {
	return y.Qtty.Equal(o.Qtty) && y.PeriodYield.Equal(o.PeriodYield)
}

// RewardDetail is one reward token's contribution to a period.
type RewardDetail struct {
	Symbol      string          `json:"symbol"`
	Qtty        decimal.Decimal `json:"qtty"`
	USD         decimal.Decimal `json:"usd"`
	Seconds     int64           `json:"seconds"`
	PeriodYield decimal.Decimal `json:"period_yield"`
}

func (r RewardDetail) ToMap() map[string]any {
	return map[string]any{
		"symbol":       r.Symbol,
		"qtty":         r.Qtty.String(),
		"usd":          r.USD.String(),
		"seconds":      r.Seconds,
		"period_yield": r.PeriodYield.String(),
	}
}

func RewardDetailFromMap(m map[string]any) (RewardDetail, error) {
	var (
		r   RewardDetail
		err error
	)
	if r.Symbol, err = stringField(m, "symbol"); err != nil {
		return r, err
	}
	if r.Qtty, err = decimalField(m, "qtty"); err != nil {
		return r, err
	}
	if r.USD, err = decimalField(m, "usd"); err != nil {
		return r, err
	}
	if r.Seconds, err = int64Field(m, "seconds"); err != nil {
		return r, err
	}
	if r.PeriodYield, err = decimalField(m, "period_yield"); err != nil {
		return r, err
	}
	return r, nil
}

func (r RewardDetail) Equal(o RewardDetail) bool {
	return r.Symbol == o.Symbol && r.Qtty.Equal(o.Qtty) && r.USD.Equal(o.USD) &&
		r.Seconds == o.Seconds && r.PeriodYield.Equal(o.PeriodYield)
}

// RewardsBreakdown aggregates the rewards earned over a period.
type RewardsBreakdown struct {
	USD         decimal.Decimal `json:"usd"`
	PeriodYield decimal.Decimal `json:"period_yield"`
	Details     []RewardDetail  `json:"details"`
}

func (r RewardsBreakdown) ToMap() map[string]any {
	details := make([]any, 0, len(r.Details))
	for _, d := range r.Details {
		details = append(details, d.ToMap())
	}
	return map[string]any{
		"usd":          r.USD.String(),
		"period_yield": r.PeriodYield.String(),
		"details":      details,
	}
}

func RewardsBreakdownFromMap(m map[string]any) (RewardsBreakdown, error) {
	var (
		r   RewardsBreakdown
		err error
	)
	if r.USD, err = decimalField(m, "usd"); err != nil {
		return r, err
	}
	if r.PeriodYield, err = decimalField(m, "period_yield"); err != nil {
		return r, err
	}
	raw, _ := m["details"].([]any)
	for i, item := range raw {
		dm, ok := item.(map[string]any)
		if !ok {
			return r, fmt.Errorf("rewards detail %d: expected object, got %T", i, item)
		}
		d, err := RewardDetailFromMap(dm)
		if err != nil {
			return r, fmt.Errorf("rewards detail %d: %w", i, err)
		}
		r.Details = append(r.Details, d)
	}
	return r, nil
}

func (r RewardsBreakdown) Equal(o RewardsBreakdown) bool {
	if !r.USD.Equal(o.USD) || !r.PeriodYield.Equal(o.PeriodYield) || len(r.Details) != len(o.Details) {
		return false
	}
	for i := range r.Details {
		if !r.Details[i].Equal(o.Details[i]) {
			return false
		}
	}
	return true
}
