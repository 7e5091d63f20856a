package clickhouse

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/storage"
)

func rewardShare(windowID, user, share string) *domain.RewardShare {
	return &domain.RewardShare{
		WindowID:               windowID,
		Chain:                  "ethereum",
		Hypervisor:             "0xabc",
		Unit:                   "blocks",
		WindowStart:            0,
		WindowEnd:              20,
		User:                   user,
		TimeWeightedValue:      decimal.RequireFromString("1500"),
		TimeWeightedPercentage: decimal.RequireFromString("12.5"),
		WindowShare:            decimal.RequireFromString(share),
		ComputedAt:             100,
	}
}

func TestRewardShareStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRewardShareStore(conn)
	ctx := context.Background()

	shares := []*domain.RewardShare{
		rewardShare("w1", "0xbob", "0.25"),
		rewardShare("w1", "0xalice", "0.75"),
	}
	require.NoError(t, store.InsertBulk(ctx, shares))

	got, err := store.GetByWindow(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0xalice", got[0].User)
	assert.True(t, got[0].WindowShare.Equal(decimal.RequireFromString("0.75")))
	assert.True(t, got[1].TimeWeightedValue.Equal(decimal.RequireFromString("1500")))
}

func TestRewardShareStore_DuplicateWindow(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRewardShareStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.RewardShare{rewardShare("w1", "0xalice", "1")}))

	err := store.InsertBulk(ctx, []*domain.RewardShare{rewardShare("w1", "0xbob", "1")})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRewardShareStore_IntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRewardShareStore(conn)
	err := store.InsertBulk(context.Background(), []*domain.RewardShare{
		rewardShare("w2", "0xalice", "0.5"),
		rewardShare("w2", "0xalice", "0.5"),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByWindow(context.Background(), "w2")
	require.NoError(t, err)
	assert.Empty(t, got)
}
