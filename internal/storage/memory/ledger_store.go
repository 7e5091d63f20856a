package memory

import (
	"context"
	"sort"
	"sync"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/storage"
)

// LedgerStore is an in-memory implementation of storage.LedgerStore.
type LedgerStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.LedgerOperation // keyed by chain|hypervisor
	keys map[string]struct{}
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		data: make(map[string][]*domain.LedgerOperation),
		keys: make(map[string]struct{}),
	}
}

// InsertBulk adds multiple operations atomically. Fails entire batch on any duplicate.
func (s *LedgerStore) InsertBulk(_ context.Context, chain domain.Chain, ops []*domain.LedgerOperation) error {
	if len(ops) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(ops))
	for _, op := range ops {
		if op == nil || op.HypervisorAddress == "" || op.UserAddress == "" {
			return storage.ErrInvalidInput
		}
		key := string(chain) + "|" + op.Key()
		if _, exists := s.keys[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, op := range ops {
		copy := *op
		hk := string(chain) + "|" + op.HypervisorAddress
		s.data[hk] = append(s.data[hk], &copy)
		s.keys[string(chain)+"|"+op.Key()] = struct{}{}
	}
	return nil
}

// GetByHypervisor retrieves all operations of a hypervisor, ordered by block, log_index ASC.
func (s *LedgerStore) GetByHypervisor(ctx context.Context, chain domain.Chain, address string) ([]*domain.LedgerOperation, error) {
	return s.GetUpToBlock(ctx, chain, address, int64(^uint64(0)>>1))
}

// GetUpToBlock retrieves operations with block <= maxBlock, ordered by block, log_index ASC.
func (s *LedgerStore) GetUpToBlock(_ context.Context, chain domain.Chain, address string, maxBlock int64) ([]*domain.LedgerOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LedgerOperation
	for _, op := range s.data[string(chain)+"|"+address] {
		if op.Block > maxBlock {
			continue
		}
		copy := *op
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return domain.CompareLedgerOperations(result[i], result[j]) < 0
	})
	return result, nil
}

// Compile-time interface check.
var _ storage.LedgerStore = (*LedgerStore)(nil)
