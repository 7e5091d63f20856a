package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Analyzer.ImpermanentCap.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, int64(86400), cfg.Analyzer.SimpleMinSeconds)
	assert.Equal(t, ".", cfg.Analyzer.CSVSeparator)
	assert.Equal(t, int64(0), cfg.TWA.DefaultWindowBlocks)
}

func TestParse_OverridesDefaults(t *testing.T) {
	raw := []byte(`
analyzer:
  impermanent_cap: "1.5"
  reconcile_epsilon: "0.001"
  csv_separator: "_"
twa:
  default_window_blocks: 43200
redis:
  addr: localhost:6379
server:
  rate_limit_rps: 5
workers: 8
hypervisors:
  - chain: ethereum
    address: "0x02203F2351E7AC6AB5051205172D3F772DB7D814"
    symbol: xWETH-USDC
    token0: {symbol: USDC, decimals: 6}
    token1: {symbol: WETH, decimals: 18}
`)

	cfg, err := Parse(raw)
	require.NoError(t, err)

	assert.True(t, cfg.Analyzer.ImpermanentCap.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, cfg.Analyzer.RewardsCap.Equal(decimal.NewFromInt(2)), "unset threshold keeps default")
	assert.True(t, cfg.Analyzer.ReconcileEpsilon.Equal(decimal.RequireFromString("0.001")))
	assert.Equal(t, "_", cfg.Analyzer.CSVSeparator)
	assert.Equal(t, int64(43200), cfg.TWA.DefaultWindowBlocks)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, 5.0, cfg.Server.RateLimitRPS)
	assert.Equal(t, 8, cfg.Workers)
	require.Len(t, cfg.Hypervisors, 1)
	assert.Equal(t, "0x02203f2351e7ac6ab5051205172d3f772db7d814", cfg.Hypervisors[0].Address)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bad decimal", "analyzer:\n  fee_cap: abc\n"},
		{"negative cap", "analyzer:\n  fee_cap: \"-1\"\n"},
		{"bad chain", "hypervisors:\n  - chain: nowhere\n    address: \"0x02203f2351e7ac6ab5051205172d3f772db7d814\"\n"},
		{"bad yaml", "analyzer: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("postgres:\n  dsn: postgres://file\n"), 0o600))

	t.Setenv("POSTGRES_DSN", "postgres://env")
	t.Setenv("WORKERS", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env", cfg.Postgres.DSN)
	assert.Equal(t, 3, cfg.Workers)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
