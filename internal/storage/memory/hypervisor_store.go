package memory

import (
	"context"
	"sort"
	"sync"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/storage"
)

// HypervisorStore is an in-memory implementation of storage.HypervisorStore.
type HypervisorStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Hypervisor // keyed by chain|address
}

// NewHypervisorStore creates a new in-memory hypervisor store.
func NewHypervisorStore() *HypervisorStore {
	return &HypervisorStore{
		data: make(map[string]*domain.Hypervisor),
	}
}

func hypervisorKey(chain domain.Chain, address string) string {
	return string(chain) + "|" + address
}

// Insert adds a hypervisor. Returns ErrDuplicateKey if exists.
func (s *HypervisorStore) Insert(_ context.Context, h *domain.Hypervisor) error {
	if h == nil || h.Address == "" || h.Chain == "" {
		return storage.ErrInvalidInput
	}

	key := hypervisorKey(h.Chain, h.Address)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *h
	s.data[key] = &copy
	return nil
}

// GetByAddress retrieves a hypervisor. Returns ErrNotFound if not exists.
func (s *HypervisorStore) GetByAddress(_ context.Context, chain domain.Chain, address string) (*domain.Hypervisor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.data[hypervisorKey(chain, address)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *h
	return &copy, nil
}

// ListByChain retrieves all hypervisors of a chain, ordered by address ASC.
func (s *HypervisorStore) ListByChain(_ context.Context, chain domain.Chain) ([]*domain.Hypervisor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Hypervisor
	for _, h := range s.data {
		if h.Chain == chain {
			copy := *h
			result = append(result, &copy)
		}
	}
	sortHypervisors(result)
	return result, nil
}

// List retrieves all hypervisors, ordered by chain, address ASC.
func (s *HypervisorStore) List(_ context.Context) ([]*domain.Hypervisor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Hypervisor, 0, len(s.data))
	for _, h := range s.data {
		copy := *h
		result = append(result, &copy)
	}
	sortHypervisors(result)
	return result, nil
}

func sortHypervisors(hs []*domain.Hypervisor) {
	sort.Slice(hs, func(i, j int) bool {
		if hs[i].Chain != hs[j].Chain {
			return hs[i].Chain < hs[j].Chain
		}
		return hs[i].Address < hs[j].Address
	})
}

// Compile-time interface check.
var _ storage.HypervisorStore = (*HypervisorStore)(nil)
