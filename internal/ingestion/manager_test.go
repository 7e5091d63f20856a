package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/ingestion/stub"
	"hypervisor-analytics/internal/storage"
	"hypervisor-analytics/internal/storage/memory"
)

const (
	hvA = "0x02203f2351e7ac6ab5051205172d3f772db7d814"
	usr = "0x1111111111111111111111111111111111111111"
)

// orderValidatingPeriodStore validates ordering in InsertBulk.
type orderValidatingPeriodStore struct {
	storage.PeriodRecordStore
}

func (s *orderValidatingPeriodStore) InsertBulk(ctx context.Context, chain domain.Chain, recs []*domain.PeriodRecord) error {
	if err := ValidatePeriodOrdering(recs); err != nil {
		return err
	}
	return s.PeriodRecordStore.InsertBulk(ctx, chain, recs)
}

// orderValidatingLedgerStore validates ordering in InsertBulk.
type orderValidatingLedgerStore struct {
	storage.LedgerStore
}

func (s *orderValidatingLedgerStore) InsertBulk(ctx context.Context, chain domain.Chain, ops []*domain.LedgerOperation) error {
	if err := ValidateLedgerOrdering(ops); err != nil {
		return err
	}
	return s.LedgerStore.InsertBulk(ctx, chain, ops)
}

func TestManager_IngestPeriods_Ordering(t *testing.T) {
	source := stub.NewStubPeriodSource([]*domain.PeriodRecord{period(300, 400), period(100, 200), period(200, 300)})
	store := &orderValidatingPeriodStore{PeriodRecordStore: memory.NewPeriodRecordStore()}

	mgr := NewManager(ManagerOptions{PeriodSource: source, PeriodStore: store})

	count, err := mgr.IngestPeriods(context.Background(), domain.ChainEthereum, hvA)
	if err != nil {
		t.Fatalf("IngestPeriods failed: %v (Manager must sort before InsertBulk)", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 records ingested, got %d", count)
	}
}

func TestManager_IngestPeriods_Idempotent(t *testing.T) {
	source := stub.NewStubPeriodSource([]*domain.PeriodRecord{period(100, 200), period(200, 300)})
	store := memory.NewPeriodRecordStore()
	mgr := NewManager(ManagerOptions{PeriodSource: source, PeriodStore: store})
	ctx := context.Background()

	if _, err := mgr.IngestPeriods(ctx, domain.ChainEthereum, hvA); err != nil {
		t.Fatalf("First ingest failed: %v", err)
	}
	count, err := mgr.IngestPeriods(ctx, domain.ChainEthereum, hvA)
	if err != nil {
		t.Fatalf("Second ingest failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 new records on resync, got %d", count)
	}

	all, _ := store.GetByHypervisor(ctx, domain.ChainEthereum, hvA)
	if len(all) != 2 {
		t.Errorf("Expected 2 stored records, got %d", len(all))
	}
}

func TestManager_IngestPeriods_SourceError(t *testing.T) {
	source := stub.NewStubPeriodSource(nil)
	source.Err = errors.New("upstream down")
	mgr := NewManager(ManagerOptions{PeriodSource: source, PeriodStore: memory.NewPeriodRecordStore()})

	if _, err := mgr.IngestPeriods(context.Background(), domain.ChainEthereum, hvA); err == nil {
		t.Error("Expected source error to propagate")
	}
}

func TestManager_IngestLedger_OrderingAndDedup(t *testing.T) {
	ops := []*domain.LedgerOperation{
		{HypervisorAddress: hvA, UserAddress: usr, Block: 20, LogIndex: 0, Balance: decimal.NewFromInt(2)},
		{HypervisorAddress: hvA, UserAddress: usr, Block: 10, LogIndex: 0, Balance: decimal.NewFromInt(1)},
	}
	source := stub.NewStubLedgerSource(ops)
	store := &orderValidatingLedgerStore{LedgerStore: memory.NewLedgerStore()}
	mgr := NewManager(ManagerOptions{LedgerSource: source, LedgerStore: store})
	ctx := context.Background()

	count, err := mgr.IngestLedger(ctx, domain.ChainEthereum, hvA)
	if err != nil {
		t.Fatalf("IngestLedger failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 ops ingested, got %d", count)
	}

	count, err = mgr.IngestLedger(ctx, domain.ChainEthereum, hvA)
	if err != nil || count != 0 {
		t.Errorf("Expected idempotent resync, got count=%d err=%v", count, err)
	}
}

func TestManager_NilSources(t *testing.T) {
	mgr := NewManager(ManagerOptions{})
	ctx := context.Background()

	if n, err := mgr.IngestPeriods(ctx, domain.ChainEthereum, hvA); n != 0 || err != nil {
		t.Errorf("Expected no-op, got %d, %v", n, err)
	}
	if n, err := mgr.IngestLedger(ctx, domain.ChainEthereum, hvA); n != 0 || err != nil {
		t.Errorf("Expected no-op, got %d, %v", n, err)
	}
}
