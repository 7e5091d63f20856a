package ingestion

import (
	"context"

	"hypervisor-analytics/internal/domain"
)

// PeriodSource provides reconciled period records from the snapshot producer.
type PeriodSource interface {
	// FetchPeriods returns every record of a hypervisor.
	// Records may be unordered; Manager enforces deterministic ordering.
	FetchPeriods(ctx context.Context, chain domain.Chain, address string) ([]*domain.PeriodRecord, error)
}

// LedgerSource provides share-balance operations from the snapshot producer.
type LedgerSource interface {
	// FetchLedger returns every ledger operation of a hypervisor.
	// Operations may be unordered; Manager enforces deterministic ordering.
	FetchLedger(ctx context.Context, chain domain.Chain, address string) ([]*domain.LedgerOperation, error)
}
