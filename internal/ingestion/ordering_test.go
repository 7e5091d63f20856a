package ingestion

import (
	"errors"
	"testing"

	"hypervisor-analytics/internal/domain"
)

func period(ini, end int64) *domain.PeriodRecord {
	return &domain.PeriodRecord{
		Address: hvA,
		Timeframe: domain.PeriodTimeframe{
			Ini: domain.TimeLocation{Block: ini, Timestamp: ini * 10},
			End: domain.TimeLocation{Block: end, Timestamp: end * 10},
		},
	}
}

func TestSortPeriodRecords(t *testing.T) {
	recs := []*domain.PeriodRecord{period(300, 400), period(100, 200), period(100, 150), period(200, 300)}

	SortPeriodRecords(recs)

	want := [][2]int64{{100, 150}, {100, 200}, {200, 300}, {300, 400}}
	for i, w := range want {
		tf := recs[i].Timeframe
		if tf.Ini.Block != w[0] || tf.End.Block != w[1] {
			t.Errorf("position %d: expected %v, got (%d, %d)", i, w, tf.Ini.Block, tf.End.Block)
		}
	}
	if err := ValidatePeriodOrdering(recs); err != nil {
		t.Errorf("Sorted records should validate, got %v", err)
	}
}

func TestValidatePeriodOrdering_Duplicate(t *testing.T) {
	recs := []*domain.PeriodRecord{period(100, 200), period(100, 200)}

	if err := ValidatePeriodOrdering(recs); !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("Expected ErrInvalidOrdering for duplicates, got %v", err)
	}
}

func TestSortLedgerOperations(t *testing.T) {
	ops := []*domain.LedgerOperation{
		{Block: 200, LogIndex: 0, UserAddress: "0xb"},
		{Block: 100, LogIndex: 3, UserAddress: "0xa"},
		{Block: 100, LogIndex: 1, UserAddress: "0xb"},
		{Block: 100, LogIndex: 1, UserAddress: "0xa"},
	}

	SortLedgerOperations(ops)

	if ops[0].LogIndex != 1 || ops[0].UserAddress != "0xa" {
		t.Errorf("First op should be (100, 1, 0xa), got (%d, %d, %s)", ops[0].Block, ops[0].LogIndex, ops[0].UserAddress)
	}
	if ops[1].UserAddress != "0xb" || ops[2].LogIndex != 3 || ops[3].Block != 200 {
		t.Errorf("Unexpected order: %+v %+v %+v", ops[1], ops[2], ops[3])
	}
	if err := ValidateLedgerOrdering(ops); err != nil {
		t.Errorf("Sorted ops should validate, got %v", err)
	}
}

func TestValidateLedgerOrdering_Invalid(t *testing.T) {
	ops := []*domain.LedgerOperation{
		{Block: 100, LogIndex: 2},
		{Block: 100, LogIndex: 1},
	}

	if err := ValidateLedgerOrdering(ops); !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("Expected ErrInvalidOrdering, got %v", err)
	}
	if err := ValidateLedgerOrdering(nil); err != nil {
		t.Errorf("Empty ops should validate, got %v", err)
	}
}
