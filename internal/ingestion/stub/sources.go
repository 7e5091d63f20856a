package stub

import (
	"context"

	"hypervisor-analytics/internal/domain"
)

// StubPeriodSource returns fixed in-memory records for testing.
// Records can be intentionally unordered to test sorting.
// Implements ingestion.PeriodSource interface.
type StubPeriodSource struct {
	records []*domain.PeriodRecord
	Err     error
}

// NewStubPeriodSource creates a new stub period source with the given records.
func NewStubPeriodSource(records []*domain.PeriodRecord) *StubPeriodSource {
	return &StubPeriodSource{records: records}
}

// FetchPeriods returns records of the address. Returns copies to prevent mutation.
func (s *StubPeriodSource) FetchPeriods(_ context.Context, _ domain.Chain, address string) ([]*domain.PeriodRecord, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var result []*domain.PeriodRecord
	for _, rec := range s.records {
		if rec.Address == address {
			c := *rec
			result = append(result, &c)
		}
	}
	return result, nil
}

// StubLedgerSource returns fixed in-memory ledger operations for testing.
// Implements ingestion.LedgerSource interface.
type StubLedgerSource struct {
	ops []*domain.LedgerOperation
}

// NewStubLedgerSource creates a new stub ledger source.
func NewStubLedgerSource(ops []*domain.LedgerOperation) *StubLedgerSource {
	return &StubLedgerSource{ops: ops}
}

// FetchLedger returns operations of the address. Returns copies to prevent mutation.
func (s *StubLedgerSource) FetchLedger(_ context.Context, _ domain.Chain, address string) ([]*domain.LedgerOperation, error) {
	var result []*domain.LedgerOperation
	for _, op := range s.ops {
		if op.HypervisorAddress == address {
			c := *op
			result = append(result, &c)
		}
	}
	return result, nil
}
