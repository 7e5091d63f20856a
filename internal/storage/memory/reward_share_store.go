package memory

import (
	"context"
	"sort"
	"sync"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/storage"
)

// RewardShareStore is an in-memory implementation of storage.RewardShareStore.
type RewardShareStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.RewardShare // keyed by window_id
}

// NewRewardShareStore creates a new in-memory reward share store.
func NewRewardShareStore() *RewardShareStore {
	return &RewardShareStore{
		data: make(map[string][]*domain.RewardShare),
	}
}

// InsertBulk adds the shares of one or more windows. Fails if any window already exists.
func (s *RewardShareStore) InsertBulk(_ context.Context, shares []*domain.RewardShare) error {
	if len(shares) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	for _, sh := range shares {
		if sh == nil || sh.WindowID == "" || sh.User == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[sh.WindowID]; exists {
			return storage.ErrDuplicateKey
		}
		key := sh.WindowID + "|" + sh.User
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	for _, sh := range shares {
		copy := *sh
		s.data[sh.WindowID] = append(s.data[sh.WindowID], &copy)
	}
	return nil
}

// GetByWindow retrieves the shares of a window, ordered by user ASC.
func (s *RewardShareStore) GetByWindow(_ context.Context, windowID string) ([]*domain.RewardShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[windowID]
	result := make([]*domain.RewardShare, 0, len(stored))
	for _, sh := range stored {
		copy := *sh
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].User < result[j].User
	})
	return result, nil
}

// Compile-time interface check.
var _ storage.RewardShareStore = (*RewardShareStore)(nil)
