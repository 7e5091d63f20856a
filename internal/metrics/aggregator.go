// Package metrics computes distribution statistics over per-period net yields.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/storage"
	"hypervisor-analytics/internal/yield"
)

// ErrNoRows is returned when a hypervisor has no persisted rows.
var ErrNoRows = errors.New("no analytic rows available for aggregation")

// PeriodDistribution computes the distribution of an in-memory series.
func PeriodDistribution(rows []yield.Row) Distribution {
	yields := make([]float64, len(rows))
	for i, row := range rows {
		yields[i] = row.Period.NetROIYield.InexactFloat64()
	}
	return computeDistribution(yields)
}

// RowsDistribution computes the distribution of persisted rows.
// Rows are ordered by end block before computing order-dependent figures.
func RowsDistribution(rows []*domain.AnalyticRow) Distribution {
	sorted := make([]*domain.AnalyticRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EndBlock < sorted[j].EndBlock
	})

	yields := make([]float64, len(sorted))
	for i, r := range sorted {
		yields[i] = r.PeriodNetYield
	}
	return computeDistribution(yields)
}

// Aggregator computes distributions from the analytic row store.
type Aggregator struct {
	rows storage.AnalyticRowStore
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(rows storage.AnalyticRowStore) *Aggregator {
	return &Aggregator{rows: rows}
}

// ComputeDistribution loads the latest persisted rows of a hypervisor.
// Returns ErrNoRows if nothing was persisted yet.
func (a *Aggregator) ComputeDistribution(ctx context.Context, chain, address string) (*Distribution, error) {
	rows, err := a.rows.GetByHypervisor(ctx, chain, address)
	if err != nil {
		return nil, fmt.Errorf("load analytic rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	d := RowsDistribution(rows)
	return &d, nil
}
