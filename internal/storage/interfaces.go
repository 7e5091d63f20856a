package storage

import (
	"context"

	"hypervisor-analytics/internal/domain"
)

// HypervisorStore provides access to hypervisors storage.
type HypervisorStore interface {
	// Insert adds a hypervisor descriptor. Returns ErrDuplicateKey if (chain, address) exists.
	Insert(ctx context.Context, h *domain.Hypervisor) error

	// GetByAddress retrieves a hypervisor. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, chain domain.Chain, address string) (*domain.Hypervisor, error)

	// ListByChain retrieves all hypervisors of a chain, ordered by address ASC.
	ListByChain(ctx context.Context, chain domain.Chain) ([]*domain.Hypervisor, error)

	// List retrieves all hypervisors, ordered by chain, address ASC.
	List(ctx context.Context) ([]*domain.Hypervisor, error)
}

// PeriodRecordStore provides access to period_records storage.
type PeriodRecordStore interface {
	// Insert adds a period record. Returns ErrDuplicateKey if (chain, address, ini_block, end_block) exists.
	Insert(ctx context.Context, chain domain.Chain, rec *domain.PeriodRecord) error

	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, chain domain.Chain, recs []*domain.PeriodRecord) error

	// GetByHypervisor retrieves all records of a hypervisor, ordered by ini_block, end_block ASC.
	GetByHypervisor(ctx context.Context, chain domain.Chain, address string) ([]*domain.PeriodRecord, error)

	// GetByBlockRange retrieves records with ini_block >= start and end_block <= end.
	GetByBlockRange(ctx context.Context, chain domain.Chain, address string, start, end int64) ([]*domain.PeriodRecord, error)

	// GetByTimeRange retrieves records with ini_timestamp >= start and end_timestamp <= end.
	GetByTimeRange(ctx context.Context, chain domain.Chain, address string, start, end int64) ([]*domain.PeriodRecord, error)
}

// LedgerStore provides access to ledger_operations storage.
type LedgerStore interface {
	// InsertBulk adds multiple operations atomically. Fails entire batch on any duplicate
	// (chain, hypervisor_address, block, log_index, user_address).
	InsertBulk(ctx context.Context, chain domain.Chain, ops []*domain.LedgerOperation) error

	// GetByHypervisor retrieves all operations of a hypervisor, ordered by block, log_index ASC.
	GetByHypervisor(ctx context.Context, chain domain.Chain, address string) ([]*domain.LedgerOperation, error)

	// GetUpToBlock retrieves operations with block <= maxBlock, ordered by block, log_index ASC.
	GetUpToBlock(ctx context.Context, chain domain.Chain, address string, maxBlock int64) ([]*domain.LedgerOperation, error)
}

// AnalyticRowStore provides access to analytic_rows storage.
type AnalyticRowStore interface {
	// InsertBulk writes the rows of one analysis run. Rows with an existing
	// (chain, address, end_block) key are superseded by the newer run.
	InsertBulk(ctx context.Context, rows []*domain.AnalyticRow) error

	// GetByHypervisor retrieves the latest rows of a hypervisor, ordered by end_block ASC.
	GetByHypervisor(ctx context.Context, chain, address string) ([]*domain.AnalyticRow, error)
}

// RewardShareStore provides access to reward_shares storage.
type RewardShareStore interface {
	// InsertBulk adds the shares of one window. Returns ErrDuplicateKey if the window was already stored.
	InsertBulk(ctx context.Context, shares []*domain.RewardShare) error

	// GetByWindow retrieves the shares of a window, ordered by user ASC.
	GetByWindow(ctx context.Context, windowID string) ([]*domain.RewardShare, error)
}
