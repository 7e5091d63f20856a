package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"hypervisor-analytics/internal/config"
	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/service"
	"hypervisor-analytics/internal/storage/memory"
)

const (
	hvA   = "0x02203f2351e7ac6ab5051205172d3f772db7d814"
	userU = "0x1111111111111111111111111111111111111111"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	server *Server
	rows   *memory.AnalyticRowStore
	svc    *service.Analytics
}

func newFixture(t *testing.T, serverCfg config.ServerConfig) *fixture {
	t.Helper()
	ctx := context.Background()

	hypervisors := memory.NewHypervisorStore()
	periods := memory.NewPeriodRecordStore()
	ledger := memory.NewLedgerStore()
	rows := memory.NewAnalyticRowStore()

	require.NoError(t, hypervisors.Insert(ctx, &domain.Hypervisor{
		Chain:   domain.ChainEthereum,
		Address: hvA,
		Symbol:  "xUSDC-USDT",
		Token0:  domain.Token{Symbol: "USDC", Decimals: 6},
		Token1:  domain.Token{Symbol: "USDT", Decimals: 6},
	}))

	snap := domain.StatusSnapshot{
		Prices:     domain.NewTokenPairAmount(dec("1"), dec("1")),
		Underlying: domain.UnderlyingValue{Qtty: domain.NewTokenPairAmount(dec("500"), dec("500"))},
		Supply:     dec("1000"),
	}
	var recs []*domain.PeriodRecord
	for i := int64(0); i < 3; i++ {
		recs = append(recs, &domain.PeriodRecord{
			Address: hvA,
			Timeframe: domain.PeriodTimeframe{
				Ini: domain.TimeLocation{Block: i * 100, Timestamp: i * 1000},
				End: domain.TimeLocation{Block: (i + 1) * 100, Timestamp: (i + 1) * 1000},
			},
			Status: domain.PeriodStatus{Ini: snap, End: snap},
			Fees:   domain.YieldAmount{Qtty: domain.NewTokenPairAmount(dec("1"), dec("0")), PeriodYield: dec("0")},
		})
	}
	require.NoError(t, periods.InsertBulk(ctx, domain.ChainEthereum, recs))

	require.NoError(t, ledger.InsertBulk(ctx, domain.ChainEthereum, []*domain.LedgerOperation{{
		HypervisorAddress: hvA,
		UserAddress:       userU,
		Block:             50,
		Timestamp:         1_700_000_600,
		Topic:             domain.TopicDeposit,
		Balance:           dec("100"),
		TotalSupply:       dec("100"),
	}}))

	logger := zaptest.NewLogger(t)
	svc := service.New(service.Options{
		Hypervisors: hypervisors,
		Periods:     periods,
		Ledger:      ledger,
		Rows:        rows,
		Logger:      logger,
	})
	server := NewServer(Options{
		Analytics:   svc,
		Hypervisors: hypervisors,
		Rows:        rows,
		Config:      serverCfg,
		Logger:      logger,
	})
	return &fixture{server: server, rows: rows, svc: svc}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})

	rec := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHypervisors(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})

	rec := f.get(t, "/v1/hypervisors?chain=ethereum")
	require.Equal(t, http.StatusOK, rec.Code)

	var hvs []domain.Hypervisor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hvs))
	require.Len(t, hvs, 1)
	assert.Equal(t, hvA, hvs[0].Address)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/v1/hypervisors?chain=cosmoshub").Code)
}

func TestReturns(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})

	// Checksummed addresses are normalized
	rec := f.get(t, "/v1/ethereum/hypervisors/0x02203F2351E7AC6AB5051205172D3F772DB7D814/returns")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Summary map[string]any   `json:"summary"`
		Rows    []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Rows, 3)
	assert.EqualValues(t, 3, body.Summary["periods"])
}

func TestReturns_BadParams(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})

	cases := []string{
		"/v1/cosmoshub/hypervisors/" + hvA + "/returns",
		"/v1/ethereum/hypervisors/not-an-address/returns",
		"/v1/ethereum/hypervisors/" + hvA + "/returns?from_block=abc",
		"/v1/ethereum/hypervisors/" + hvA + "/returns?simple=maybe",
	}
	for _, path := range cases {
		assert.Equal(t, http.StatusBadRequest, f.get(t, path).Code, path)
	}
}

func TestReturns_UnknownHypervisor(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})

	rec := f.get(t, "/v1/polygon/hypervisors/"+hvA+"/returns")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReturnsCSV(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})

	rec := f.get(t, "/v1/ethereum/hypervisors/"+hvA+"/returns.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Len(t, strings.Split(strings.TrimSpace(rec.Body.String()), "\n"), 4)
}

func TestRewards(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})

	rec := f.get(t, "/v1/ethereum/hypervisors/"+hvA+"/rewards")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tokens":[]`)
}

func TestTWA_HalfOpenRangeIsBadRequest(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})

	for _, query := range []string{"from_block=100", "to_ts=5000"} {
		rec := f.get(t, "/v1/ethereum/hypervisors/"+hvA+"/twa?"+query)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestTWA(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})

	rec := f.get(t, "/v1/ethereum/hypervisors/"+hvA+"/twa?from_block=100&to_block=200")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Unit  string `json:"unit"`
		Users []struct {
			User        string          `json:"user"`
			WindowShare decimal.Decimal `json:"window_share"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "blocks", body.Unit)
	require.Len(t, body.Users, 1)
	assert.True(t, body.Users[0].WindowShare.Equal(dec("1")), "sole holder owns the window")

	// No range and no configured default
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/v1/ethereum/hypervisors/"+hvA+"/twa").Code)
}

func TestDistribution(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})
	path := "/v1/ethereum/hypervisors/" + hvA + "/distribution"

	assert.Equal(t, http.StatusNotFound, f.get(t, path).Code, "nothing persisted yet")

	_, err := f.svc.AnalyzeHypervisor(context.Background(), domain.ChainEthereum, hvA)
	require.NoError(t, err)

	rec := f.get(t, path)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"periods":3`)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, config.ServerConfig{RateLimitRPS: 0.001, RateLimitBurst: 1})
	path := "/v1/hypervisors"

	assert.Equal(t, http.StatusOK, f.get(t, path).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.get(t, path).Code)

	// Health is not rate limited
	assert.Equal(t, http.StatusOK, f.get(t, "/health").Code)
}
