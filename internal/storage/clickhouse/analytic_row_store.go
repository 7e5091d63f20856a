package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/storage"
)

// AnalyticRowStore implements storage.AnalyticRowStore using ClickHouse.
// The table is a ReplacingMergeTree keyed by (chain, address, end_block)
// with computed_at as version, so a newer run supersedes older rows.
type AnalyticRowStore struct {
	conn *Conn
}

// NewAnalyticRowStore creates a new AnalyticRowStore.
func NewAnalyticRowStore(conn *Conn) *AnalyticRowStore {
	return &AnalyticRowStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AnalyticRowStore = (*AnalyticRowStore)(nil)

const analyticRowColumns = `
	chain, address, period_id, ini_block, end_block, ini_timestamp, end_timestamp, seconds,
	period_fees_usd, period_impermanent_usd, period_rewards_usd, period_net_yield,
	fees_yield, rewards_yield, impermanent_yield, hypervisor_yield, net_yield,
	fees_apr, rewards_apr, impermanent_apr, hypervisor_apr, net_apr,
	price_per_share, tvl_usd,
	hold_deposited_yield, hold_fifty_fifty_yield, hold_token0_yield, hold_token1_yield,
	computed_at
`

// InsertBulk writes the rows of one analysis run.
func (s *AnalyticRowStore) InsertBulk(ctx context.Context, rows []*domain.AnalyticRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO analytic_rows (`+analyticRowColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			r.Chain, r.Address, r.PeriodID, r.IniBlock, r.EndBlock, r.IniTimestamp, r.EndTimestamp, r.Seconds,
			r.PeriodFeesUSD, r.PeriodImpermanentUSD, r.PeriodRewardsUSD, r.PeriodNetYield,
			r.FeesYield, r.RewardsYield, r.ImpermanentYield, r.HypervisorYield, r.NetYield,
			r.FeesAPR, r.RewardsAPR, r.ImpermanentAPR, r.HypervisorAPR, r.NetAPR,
			r.PricePerShare, r.TVLUSD,
			r.HoldDepositedYield, r.HoldFiftyFiftyYield, r.HoldToken0Yield, r.HoldToken1Yield,
			r.ComputedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByHypervisor retrieves the latest rows of a hypervisor, ordered by end_block ASC.
// FINAL collapses rows not yet merged by the engine.
func (s *AnalyticRowStore) GetByHypervisor(ctx context.Context, chain, address string) ([]*domain.AnalyticRow, error) {
	query := `SELECT ` + analyticRowColumns + ` FROM analytic_rows FINAL
		WHERE chain = ? AND address = ?
		ORDER BY end_block ASC`

	rows, err := s.conn.Query(ctx, query, chain, address)
	if err != nil {
		return nil, fmt.Errorf("query analytic rows: %w", err)
	}
	defer rows.Close()

	return scanAnalyticRows(rows)
}

func scanAnalyticRows(rows driver.Rows) ([]*domain.AnalyticRow, error) {
	var result []*domain.AnalyticRow
	for rows.Next() {
		var r domain.AnalyticRow
		err := rows.Scan(
			&r.Chain, &r.Address, &r.PeriodID, &r.IniBlock, &r.EndBlock, &r.IniTimestamp, &r.EndTimestamp, &r.Seconds,
			&r.PeriodFeesUSD, &r.PeriodImpermanentUSD, &r.PeriodRewardsUSD, &r.PeriodNetYield,
			&r.FeesYield, &r.RewardsYield, &r.ImpermanentYield, &r.HypervisorYield, &r.NetYield,
			&r.FeesAPR, &r.RewardsAPR, &r.ImpermanentAPR, &r.HypervisorAPR, &r.NetAPR,
			&r.PricePerShare, &r.TVLUSD,
			&r.HoldDepositedYield, &r.HoldFiftyFiftyYield, &r.HoldToken0Yield, &r.HoldToken1Yield,
			&r.ComputedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan analytic row: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analytic rows: %w", err)
	}
	return result, nil
}
