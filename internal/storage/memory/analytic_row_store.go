package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/storage"
)

// AnalyticRowStore is an in-memory implementation of storage.AnalyticRowStore.
// Like the ReplacingMergeTree table it mirrors, a newer row replaces an older
// one with the same key.
type AnalyticRowStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AnalyticRow // keyed by chain|address|end_block
}

// NewAnalyticRowStore creates a new in-memory analytic row store.
func NewAnalyticRowStore() *AnalyticRowStore {
	return &AnalyticRowStore{
		data: make(map[string]*domain.AnalyticRow),
	}
}

func analyticKey(r *domain.AnalyticRow) string {
	return fmt.Sprintf("%s|%s|%d", r.Chain, r.Address, r.EndBlock)
}

// InsertBulk writes rows, replacing any row with the same key and an older ComputedAt.
func (s *AnalyticRowStore) InsertBulk(_ context.Context, rows []*domain.AnalyticRow) error {
	for _, r := range rows {
		if r == nil || r.Chain == "" || r.Address == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		key := analyticKey(r)
		if existing, ok := s.data[key]; ok && existing.ComputedAt > r.ComputedAt {
			continue
		}
		copy := *r
		s.data[key] = &copy
	}
	return nil
}

// GetByHypervisor retrieves the latest rows of a hypervisor, ordered by end_block ASC.
func (s *AnalyticRowStore) GetByHypervisor(_ context.Context, chain, address string) ([]*domain.AnalyticRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AnalyticRow
	for _, r := range s.data {
		if r.Chain == chain && r.Address == address {
			copy := *r
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EndBlock < result[j].EndBlock
	})
	return result, nil
}

// Compile-time interface check.
var _ storage.AnalyticRowStore = (*AnalyticRowStore)(nil)
