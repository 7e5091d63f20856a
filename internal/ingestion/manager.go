package ingestion

import (
	"context"
	"fmt"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/storage"
)

// Manager moves records from sources to storage.
// It enforces deterministic ordering and skips records already stored,
// so repeated syncs of an append-only upstream are idempotent.
type Manager struct {
	periodSource PeriodSource
	ledgerSource LedgerSource

	periodStore storage.PeriodRecordStore
	ledgerStore storage.LedgerStore
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	PeriodSource PeriodSource
	LedgerSource LedgerSource

	PeriodStore storage.PeriodRecordStore
	LedgerStore storage.LedgerStore
}

// NewManager creates a new ingestion manager with the provided sources and stores.
func NewManager(opts ManagerOptions) *Manager {
	return &Manager{
		periodSource: opts.PeriodSource,
		ledgerSource: opts.LedgerSource,
		periodStore:  opts.PeriodStore,
		ledgerStore:  opts.LedgerStore,
	}
}

// IngestPeriods fetches period records of a hypervisor and stores the new ones.
// Returns count of stored records.
func (m *Manager) IngestPeriods(ctx context.Context, chain domain.Chain, address string) (int, error) {
	if m.periodSource == nil || m.periodStore == nil {
		return 0, nil
	}

	recs, err := m.periodSource.FetchPeriods(ctx, chain, address)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}

	existing, err := m.periodStore.GetByHypervisor(ctx, chain, address)
	if err != nil {
		return 0, fmt.Errorf("load stored periods: %w", err)
	}
	seen := make(map[string]struct{}, len(existing)+len(recs))
	for _, rec := range existing {
		seen[rec.ID()] = struct{}{}
	}

	fresh := make([]*domain.PeriodRecord, 0, len(recs))
	for _, rec := range recs {
		if rec.Address == "" {
			rec.Address = address
		}
		if _, ok := seen[rec.ID()]; ok {
			continue
		}
		seen[rec.ID()] = struct{}{}
		fresh = append(fresh, rec)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	SortPeriodRecords(fresh)
	if err := ValidatePeriodOrdering(fresh); err != nil {
		return 0, err
	}

	if err := m.periodStore.InsertBulk(ctx, chain, fresh); err != nil {
		return 0, err
	}
	return len(fresh), nil
}

// IngestLedger fetches ledger operations of a hypervisor and stores the new ones.
// Returns count of stored operations.
func (m *Manager) IngestLedger(ctx context.Context, chain domain.Chain, address string) (int, error) {
	if m.ledgerSource == nil || m.ledgerStore == nil {
		return 0, nil
	}

	ops, err := m.ledgerSource.FetchLedger(ctx, chain, address)
	if err != nil {
		return 0, err
	}
	if len(ops) == 0 {
		return 0, nil
	}

	existing, err := m.ledgerStore.GetByHypervisor(ctx, chain, address)
	if err != nil {
		return 0, fmt.Errorf("load stored ledger: %w", err)
	}
	seen := make(map[string]struct{}, len(existing)+len(ops))
	for _, op := range existing {
		seen[op.Key()] = struct{}{}
	}

	fresh := make([]*domain.LedgerOperation, 0, len(ops))
	for _, op := range ops {
		if op.HypervisorAddress == "" {
			op.HypervisorAddress = address
		}
		if _, ok := seen[op.Key()]; ok {
			continue
		}
		seen[op.Key()] = struct{}{}
		fresh = append(fresh, op)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	SortLedgerOperations(fresh)
	if err := ValidateLedgerOrdering(fresh); err != nil {
		return 0, err
	}

	if err := m.ledgerStore.InsertBulk(ctx, chain, fresh); err != nil {
		return 0, err
	}
	return len(fresh), nil
}
