package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"hypervisor-analytics/internal/config"
	"hypervisor-analytics/internal/domain"
)

func TestOpenStores_Memory(t *testing.T) {
	stores, cleanup, err := OpenStores(context.Background(), config.Default(), true, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, stores.Hypervisors)
	assert.NotNil(t, stores.Periods)
	assert.NotNil(t, stores.Ledger)
	assert.NotNil(t, stores.Rows)
	assert.NotNil(t, stores.Shares)
}

func TestOpenStores_RequiresDSNs(t *testing.T) {
	_, _, err := OpenStores(context.Background(), config.Default(), false, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestSeedHypervisors_Idempotent(t *testing.T) {
	ctx := context.Background()
	stores, cleanup, err := OpenStores(ctx, config.Default(), true, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer cleanup()

	cfg := config.Default()
	cfg.Hypervisors = []domain.Hypervisor{
		{Chain: domain.ChainEthereum, Address: "0x02203f2351e7ac6ab5051205172d3f772db7d814", Symbol: "xUSDC-USDT"},
		{Chain: domain.ChainPolygon, Address: "0x0407c810546f1dc007f01a80e65983072d8b6f3e", Symbol: "xWMATIC-USDC"},
	}

	n, err := SeedHypervisors(ctx, stores.Hypervisors, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = SeedHypervisors(ctx, stores.Hypervisors, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	all, err := stores.Hypervisors.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
