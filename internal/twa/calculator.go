// Package twa computes per-user time-weighted share balances over a window,
// used to split continuously accruing rewards.
package twa

import (
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hypervisor-analytics/internal/config"
	"hypervisor-analytics/internal/domain"
)

// TraceEntry records one operation of a user as seen by the fold.
type TraceEntry struct {
	Block       int64           `json:"block"`
	LogIndex    int             `json:"log_index"`
	Timestamp   int64           `json:"timestamp"`
	Topic       string          `json:"topic"`
	Balance     decimal.Decimal `json:"balance"`
	TotalSupply decimal.Decimal `json:"total_supply"`
	Opening     bool            `json:"opening"` // at or before window start
}

// UserShare is the time-weighted participation of one user.
type UserShare struct {
	User                   string          `json:"user"`
	TimeWeightedValue      decimal.Decimal `json:"time_weighted_value"`
	TimeWeightedPercentage decimal.Decimal `json:"time_weighted_percentage"`
	WindowShare            decimal.Decimal `json:"window_share"` // percentage / duration
	Operations             []TraceEntry    `json:"operation_trace"`
}

// Result holds every user's share for one window.
type Result struct {
	Unit          Unit                  `json:"unit"`
	Range         Range                 `json:"range"`
	Users         map[string]*UserShare `json:"users"`
	TotalWeight   decimal.Decimal       `json:"total_weight"`
	EndingSupply  decimal.Decimal       `json:"ending_supply"`
	OverBound     bool                  `json:"over_bound"`
	OperationsRun int                   `json:"operations"`
}

// SortedUsers returns the user shares ordered by address.
func (r *Result) SortedUsers() []*UserShare {
	out := make([]*UserShare, 0, len(r.Users))
	for _, u := range r.Users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User < out[j].User })
	return out
}

// Calculator folds a hypervisor's ledger into time-weighted balances.
type Calculator struct {
	ops    []*domain.LedgerOperation
	cfg    config.TWAConfig
	logger *zap.Logger
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithLogger sets the calculator logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Calculator) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCalculator sorts a copy of ops by block then log index.
func NewCalculator(ops []*domain.LedgerOperation, cfg config.TWAConfig, opts ...Option) *Calculator {
	sorted := make([]*domain.LedgerOperation, 0, len(ops))
	for _, op := range ops {
		if op != nil {
			sorted = append(sorted, op)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return domain.CompareLedgerOperations(sorted[i], sorted[j]) < 0
	})

	c := &Calculator{ops: sorted, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultWindow builds a trailing window ending at the latest operation from
// the configured default lengths. Blocks win over seconds.
func (c *Calculator) DefaultWindow() (Window, error) {
	if len(c.ops) == 0 {
		return Window{}, ErrConfiguration
	}
	last := c.ops[len(c.ops)-1]
	switch {
	case c.cfg.DefaultWindowBlocks > 0:
		return BlockWindow(last.Block-c.cfg.DefaultWindowBlocks, last.Block), nil
	case c.cfg.DefaultWindowSeconds > 0:
		return TimestampWindow(last.Timestamp-c.cfg.DefaultWindowSeconds, last.Timestamp), nil
	}
	return Window{}, ErrConfiguration
}

// foldOutput is the raw output of one weighted fold.
type foldOutput struct {
	weights      map[string]decimal.Decimal
	trace        map[string][]TraceEntry
	endingSupply decimal.Decimal
	processed    int
}

// fold charges elapsed × weight to every holder between consecutive
// operations in the window. The operation's own balance and supply are
// applied after the charge, so the weight uses the supply of the previous
// processed operation.
func (c *Calculator) fold(unit Unit, r Range, s Strategy) foldOutput {
	position := func(op *domain.LedgerOperation) int64 {
		if unit == UnitBlocks {
			return op.Block
		}
		return op.Timestamp
	}

	balances := make(map[string]decimal.Decimal)
	out := foldOutput{
		weights: make(map[string]decimal.Decimal),
		trace:   make(map[string][]TraceEntry),
	}
	supply := decimal.Zero
	boundary := r.Start

	charge := func(until int64) {
		elapsed := decimal.NewFromInt(until - boundary)
		if elapsed.IsZero() {
			return
		}
		for user, bal := range balances {
			if bal.IsZero() {
				continue
			}
			out.weights[user] = out.weights[user].Add(elapsed.Mul(s.Weight(bal, supply)))
		}
	}

	for _, op := range c.ops {
		pos := position(op)
		if pos > r.End {
			break
		}
		entry := TraceEntry{
			Block:       op.Block,
			LogIndex:    op.LogIndex,
			Timestamp:   op.Timestamp,
			Topic:       op.Topic,
			Balance:     op.Balance,
			TotalSupply: op.TotalSupply,
			Opening:     pos <= r.Start,
		}
		if !entry.Opening {
			charge(pos)
			boundary = pos
			out.processed++
		}
		balances[op.UserAddress] = op.Balance
		supply = op.TotalSupply
		out.trace[op.UserAddress] = append(out.trace[op.UserAddress], entry)
	}

	if boundary < r.End {
		charge(r.End)
	}
	out.endingSupply = supply
	return out
}

// Fold runs a single strategy and returns per-user weights.
func (c *Calculator) Fold(w Window, s Strategy) (map[string]decimal.Decimal, error) {
	unit, r, err := w.Resolve()
	if err != nil {
		return nil, err
	}
	return c.fold(unit, r, s).weights, nil
}

// Calculate runs both strategies over the window. Users whose accumulated
// weight is exactly zero are dropped. A total weight above ending supply ×
// duration is logged and flagged but the result is still returned.
func (c *Calculator) Calculate(w Window) (*Result, error) {
	unit, r, err := w.Resolve()
	if err != nil {
		return nil, err
	}

	abs := c.fold(unit, r, Absolute)
	pct := c.fold(unit, r, Percentage)

	res := &Result{
		Unit:          unit,
		Range:         r,
		Users:         make(map[string]*UserShare),
		TotalWeight:   decimal.Zero,
		EndingSupply:  abs.endingSupply,
		OperationsRun: abs.processed,
	}
	duration := decimal.NewFromInt(r.Duration())

	for user, value := range abs.weights {
		if value.IsZero() {
			continue
		}
		percentage := pct.weights[user]
		res.Users[user] = &UserShare{
			User:                   user,
			TimeWeightedValue:      value,
			TimeWeightedPercentage: percentage,
			WindowShare:            domain.SafeDiv(percentage, duration),
			Operations:             abs.trace[user],
		}
		res.TotalWeight = res.TotalWeight.Add(value)
	}

	bound := res.EndingSupply.Mul(duration)
	if res.TotalWeight.GreaterThan(bound) {
		res.OverBound = true
		c.logger.Warn("time-weighted total exceeds supply bound",
			zap.String("unit", string(unit)),
			zap.Int64("start", r.Start),
			zap.Int64("end", r.End),
			zap.String("total_weight", res.TotalWeight.String()),
			zap.String("bound", bound.String()),
		)
	}
	return res, nil
}
