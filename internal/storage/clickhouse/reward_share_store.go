package clickhouse

import (
	"context"
	"fmt"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/storage"
)

// RewardShareStore implements storage.RewardShareStore using ClickHouse.
type RewardShareStore struct {
	conn *Conn
}

// NewRewardShareStore creates a new RewardShareStore.
func NewRewardShareStore(conn *Conn) *RewardShareStore {
	return &RewardShareStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RewardShareStore = (*RewardShareStore)(nil)

const rewardShareColumns = `
	window_id, chain, hypervisor, unit, window_start, window_end, user_address,
	time_weighted_value, time_weighted_percentage, window_share, computed_at
`

// InsertBulk adds the shares of one or more windows. Returns ErrDuplicateKey
// if any window was already stored or a (window, user) pair repeats in the batch.
func (s *RewardShareStore) InsertBulk(ctx context.Context, shares []*domain.RewardShare) error {
	if len(shares) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	windows := make(map[string]struct{})
	for _, sh := range shares {
		key := sh.WindowID + "|" + sh.User
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
		windows[sh.WindowID] = struct{}{}
	}

	// ReplacingMergeTree would silently replace, but windows are append-only.
	for windowID := range windows {
		exists, err := s.exists(ctx, windowID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO reward_shares (`+rewardShareColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, sh := range shares {
		err = batch.Append(
			sh.WindowID, sh.Chain, sh.Hypervisor, sh.Unit, sh.WindowStart, sh.WindowEnd, sh.User,
			sh.TimeWeightedValue, sh.TimeWeightedPercentage, sh.WindowShare, sh.ComputedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByWindow retrieves the shares of a window, ordered by user ASC.
func (s *RewardShareStore) GetByWindow(ctx context.Context, windowID string) ([]*domain.RewardShare, error) {
	query := `SELECT ` + rewardShareColumns + ` FROM reward_shares FINAL
		WHERE window_id = ?
		ORDER BY user_address ASC`

	rows, err := s.conn.Query(ctx, query, windowID)
	if err != nil {
		return nil, fmt.Errorf("query reward shares: %w", err)
	}
	defer rows.Close()

	var result []*domain.RewardShare
	for rows.Next() {
		var sh domain.RewardShare
		err := rows.Scan(
			&sh.WindowID, &sh.Chain, &sh.Hypervisor, &sh.Unit, &sh.WindowStart, &sh.WindowEnd, &sh.User,
			&sh.TimeWeightedValue, &sh.TimeWeightedPercentage, &sh.WindowShare, &sh.ComputedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan reward share: %w", err)
		}
		result = append(result, &sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reward shares: %w", err)
	}
	return result, nil
}

func (s *RewardShareStore) exists(ctx context.Context, windowID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count() FROM reward_shares WHERE window_id = ?`, windowID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
