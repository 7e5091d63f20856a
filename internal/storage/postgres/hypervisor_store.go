package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/storage"
)

// HypervisorStore implements storage.HypervisorStore using PostgreSQL.
type HypervisorStore struct {
	pool *Pool
}

// NewHypervisorStore creates a new HypervisorStore.
func NewHypervisorStore(pool *Pool) *HypervisorStore {
	return &HypervisorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HypervisorStore = (*HypervisorStore)(nil)

const hypervisorColumns = `
	chain, address, symbol,
	token0_address, token0_symbol, token0_decimals,
	token1_address, token1_symbol, token1_decimals
`

// Insert adds a hypervisor. Returns ErrDuplicateKey if (chain, address) exists.
func (s *HypervisorStore) Insert(ctx context.Context, h *domain.Hypervisor) error {
	query := `INSERT INTO hypervisors (` + hypervisorColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		string(h.Chain), h.Address, h.Symbol,
		h.Token0.Address, h.Token0.Symbol, h.Token0.Decimals,
		h.Token1.Address, h.Token1.Symbol, h.Token1.Decimals,
	)
	if err != nil {
		return writeError("insert hypervisor", err)
	}
	return nil
}

// GetByAddress retrieves a hypervisor. Returns ErrNotFound if not exists.
func (s *HypervisorStore) GetByAddress(ctx context.Context, chain domain.Chain, address string) (*domain.Hypervisor, error) {
	query := `SELECT ` + hypervisorColumns + ` FROM hypervisors WHERE chain = $1 AND address = $2`

	rows, err := s.pool.Query(ctx, query, string(chain), address)
	if err != nil {
		return nil, fmt.Errorf("get hypervisor: %w", err)
	}
	defer rows.Close()

	hs, err := scanHypervisors(rows)
	if err != nil {
		return nil, err
	}
	if len(hs) == 0 {
		return nil, storage.ErrNotFound
	}
	return hs[0], nil
}

// ListByChain retrieves all hypervisors of a chain, ordered by address ASC.
func (s *HypervisorStore) ListByChain(ctx context.Context, chain domain.Chain) ([]*domain.Hypervisor, error) {
	query := `SELECT ` + hypervisorColumns + ` FROM hypervisors WHERE chain = $1 ORDER BY address ASC`

	rows, err := s.pool.Query(ctx, query, string(chain))
	if err != nil {
		return nil, fmt.Errorf("list hypervisors by chain: %w", err)
	}
	defer rows.Close()

	return scanHypervisors(rows)
}

// List retrieves all hypervisors, ordered by chain, address ASC.
func (s *HypervisorStore) List(ctx context.Context) ([]*domain.Hypervisor, error) {
	query := `SELECT ` + hypervisorColumns + ` FROM hypervisors ORDER BY chain ASC, address ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list hypervisors: %w", err)
	}
	defer rows.Close()

	return scanHypervisors(rows)
}

// scanHypervisors scans multiple rows into a slice of Hypervisor.
func scanHypervisors(rows pgx.Rows) ([]*domain.Hypervisor, error) {
	var result []*domain.Hypervisor

	for rows.Next() {
		var (
			h     domain.Hypervisor
			chain string
		)
		err := rows.Scan(
			&chain, &h.Address, &h.Symbol,
			&h.Token0.Address, &h.Token0.Symbol, &h.Token0.Decimals,
			&h.Token1.Address, &h.Token1.Symbol, &h.Token1.Decimals,
		)
		if err != nil {
			return nil, fmt.Errorf("scan hypervisor: %w", err)
		}
		h.Chain = domain.Chain(chain)
		result = append(result, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hypervisors: %w", err)
	}

	return result, nil
}
