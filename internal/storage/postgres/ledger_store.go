package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/storage"
)

// LedgerStore implements storage.LedgerStore using PostgreSQL.
// Balances are NUMERIC and cross the driver boundary as text.
type LedgerStore struct {
	pool *Pool
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool *Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LedgerStore = (*LedgerStore)(nil)

// InsertBulk adds multiple operations atomically. Fails entire batch on any duplicate.
func (s *LedgerStore) InsertBulk(ctx context.Context, chain domain.Chain, ops []*domain.LedgerOperation) error {
	if len(ops) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO ledger_operations (
			chain, hypervisor_address, user_address, block, log_index, timestamp, topic, balance, total_supply
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9::numeric)
	`

	for _, op := range ops {
		_, err := tx.Exec(ctx, query,
			string(chain),
			op.HypervisorAddress,
			op.UserAddress,
			op.Block,
			op.LogIndex,
			op.Timestamp,
			op.Topic,
			op.Balance.String(),
			op.TotalSupply.String(),
		)
		if err != nil {
			return writeError("insert ledger operation in bulk", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByHypervisor retrieves all operations of a hypervisor, ordered by block, log_index ASC.
func (s *LedgerStore) GetByHypervisor(ctx context.Context, chain domain.Chain, address string) ([]*domain.LedgerOperation, error) {
	return s.GetUpToBlock(ctx, chain, address, math.MaxInt64)
}

// GetUpToBlock retrieves operations with block <= maxBlock, ordered by block, log_index ASC.
func (s *LedgerStore) GetUpToBlock(ctx context.Context, chain domain.Chain, address string, maxBlock int64) ([]*domain.LedgerOperation, error) {
	query := `
		SELECT hypervisor_address, user_address, block, log_index, timestamp, topic,
			balance::text, total_supply::text
		FROM ledger_operations
		WHERE chain = $1 AND hypervisor_address = $2 AND block <= $3
		ORDER BY block ASC, log_index ASC, user_address ASC
	`

	rows, err := s.pool.Query(ctx, query, string(chain), address, maxBlock)
	if err != nil {
		return nil, fmt.Errorf("get ledger operations: %w", err)
	}
	defer rows.Close()

	return scanLedgerOperations(rows)
}

// scanLedgerOperations scans multiple rows into a slice of LedgerOperation.
func scanLedgerOperations(rows pgx.Rows) ([]*domain.LedgerOperation, error) {
	var result []*domain.LedgerOperation

	for rows.Next() {
		var (
			op              domain.LedgerOperation
			balance, supply string
		)
		err := rows.Scan(
			&op.HypervisorAddress,
			&op.UserAddress,
			&op.Block,
			&op.LogIndex,
			&op.Timestamp,
			&op.Topic,
			&balance,
			&supply,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger operation: %w", err)
		}
		if op.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("parse balance: %w", err)
		}
		if op.TotalSupply, err = decimal.NewFromString(supply); err != nil {
			return nil, fmt.Errorf("parse total supply: %w", err)
		}
		result = append(result, &op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger operations: %w", err)
	}

	return result, nil
}
