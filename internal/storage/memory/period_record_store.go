package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/storage"
)

// PeriodRecordStore is an in-memory implementation of storage.PeriodRecordStore.
type PeriodRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PeriodRecord // keyed by chain|address|ini|end
}

// NewPeriodRecordStore creates a new in-memory period record store.
func NewPeriodRecordStore() *PeriodRecordStore {
	return &PeriodRecordStore{
		data: make(map[string]*domain.PeriodRecord),
	}
}

func periodKey(chain domain.Chain, rec *domain.PeriodRecord) string {
	return fmt.Sprintf("%s|%s|%d|%d", chain, rec.Address, rec.Timeframe.Ini.Block, rec.Timeframe.End.Block)
}

func copyPeriod(rec *domain.PeriodRecord) *domain.PeriodRecord {
	copy := *rec
	if rec.Rewards.Details != nil {
		copy.Rewards.Details = append([]domain.RewardDetail(nil), rec.Rewards.Details...)
	}
	return &copy
}

// Insert adds a record. Returns ErrDuplicateKey if exists.
func (s *PeriodRecordStore) Insert(_ context.Context, chain domain.Chain, rec *domain.PeriodRecord) error {
	if rec == nil || rec.Address == "" {
		return storage.ErrInvalidInput
	}

	key := periodKey(chain, rec)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[key] = copyPeriod(rec)
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *PeriodRecordStore) InsertBulk(_ context.Context, chain domain.Chain, recs []*domain.PeriodRecord) error {
	if len(recs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		if rec == nil || rec.Address == "" {
			return storage.ErrInvalidInput
		}
		key := periodKey(chain, rec)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, rec := range recs {
		s.data[periodKey(chain, rec)] = copyPeriod(rec)
	}
	return nil
}

// GetByHypervisor retrieves all records of a hypervisor, ordered by ini_block, end_block ASC.
func (s *PeriodRecordStore) GetByHypervisor(_ context.Context, chain domain.Chain, address string) ([]*domain.PeriodRecord, error) {
	return s.filter(chain, address, func(*domain.PeriodRecord) bool { return true }), nil
}

// GetByBlockRange retrieves records with ini_block >= start and end_block <= end.
func (s *PeriodRecordStore) GetByBlockRange(_ context.Context, chain domain.Chain, address string, start, end int64) ([]*domain.PeriodRecord, error) {
	return s.filter(chain, address, func(rec *domain.PeriodRecord) bool {
		return rec.Timeframe.Ini.Block >= start && rec.Timeframe.End.Block <= end
	}), nil
}

// GetByTimeRange retrieves records with ini_timestamp >= start and end_timestamp <= end.
func (s *PeriodRecordStore) GetByTimeRange(_ context.Context, chain domain.Chain, address string, start, end int64) ([]*domain.PeriodRecord, error) {
	return s.filter(chain, address, func(rec *domain.PeriodRecord) bool {
		return rec.Timeframe.Ini.Timestamp >= start && rec.Timeframe.End.Timestamp <= end
	}), nil
}

func (s *PeriodRecordStore) filter(chain domain.Chain, address string, keep func(*domain.PeriodRecord) bool) []*domain.PeriodRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := string(chain) + "|" + address + "|"
	var result []*domain.PeriodRecord
	for key, rec := range s.data {
		if len(key) < len(prefix) || key[:len(prefix)] != prefix || !keep(rec) {
			continue
		}
		result = append(result, copyPeriod(rec))
	}

	sort.Slice(result, func(i, j int) bool {
		return domain.ComparePeriodRecords(result[i], result[j]) < 0
	})
	return result
}

// Compile-time interface check.
var _ storage.PeriodRecordStore = (*PeriodRecordStore)(nil)
