package ingestion

import (
	"errors"
	"slices"

	"hypervisor-analytics/internal/domain"
)

// ErrInvalidOrdering is returned when records are not properly ordered.
var ErrInvalidOrdering = errors.New("records are not in deterministic order")

// SortPeriodRecords orders records by (ini_block, end_block, ini_timestamp, address) ASC.
func SortPeriodRecords(recs []*domain.PeriodRecord) {
	slices.SortStableFunc(recs, domain.ComparePeriodRecords)
}

// SortLedgerOperations orders operations by (block, log_index, user_address) ASC.
func SortLedgerOperations(ops []*domain.LedgerOperation) {
	slices.SortStableFunc(ops, domain.CompareLedgerOperations)
}

// ValidatePeriodOrdering checks that records are strictly ascending.
// Duplicates are reported as ErrInvalidOrdering.
func ValidatePeriodOrdering(recs []*domain.PeriodRecord) error {
	for i := 1; i < len(recs); i++ {
		if domain.ComparePeriodRecords(recs[i-1], recs[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// ValidateLedgerOrdering checks that operations are strictly ascending.
func ValidateLedgerOrdering(ops []*domain.LedgerOperation) error {
	for i := 1; i < len(ops); i++ {
		if domain.CompareLedgerOperations(ops[i-1], ops[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}
