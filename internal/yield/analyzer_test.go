package yield

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypervisor-analytics/internal/config"
	"hypervisor-analytics/internal/domain"
)

const hvAddr = "0x02203f2351e7ac6ab5051205172d3f772db7d814"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var testHypervisor = domain.Hypervisor{
	Chain:   domain.ChainEthereum,
	Address: hvAddr,
	Symbol:  "xUSDC-USDT",
	Token0:  domain.Token{Symbol: "USDC", Decimals: 6},
	Token1:  domain.Token{Symbol: "USDT", Decimals: 6},
}

// period builds a record with unit prices on both sides unless overridden.
type period struct {
	iniBlock, endBlock int64
	iniTs, endTs       int64
	iniQtty, endQtty   [2]string
	supply             string
	fees               [2]string
	endPrices          [2]string
	rewards            []domain.RewardDetail
	feeYield           string
}

func (p period) record() *domain.PeriodRecord {
	endPrices := p.endPrices
	if endPrices[0] == "" {
		endPrices = [2]string{"1", "1"}
	}
	fees := p.fees
	if fees[0] == "" {
		fees = [2]string{"0", "0"}
	}
	feeYield := p.feeYield
	if feeYield == "" {
		feeYield = "0"
	}
	rewardsUSD := decimal.Zero
	for _, r := range p.rewards {
		rewardsUSD = rewardsUSD.Add(r.USD)
	}
	return &domain.PeriodRecord{
		Address: hvAddr,
		Timeframe: domain.PeriodTimeframe{
			Ini: domain.TimeLocation{Block: p.iniBlock, Timestamp: p.iniTs},
			End: domain.TimeLocation{Block: p.endBlock, Timestamp: p.endTs},
		},
		Status: domain.PeriodStatus{
			Ini: domain.StatusSnapshot{
				Prices:     domain.NewTokenPairAmount(dec("1"), dec("1")),
				Underlying: domain.UnderlyingValue{Qtty: domain.NewTokenPairAmount(dec(p.iniQtty[0]), dec(p.iniQtty[1]))},
				Supply:     dec(p.supply),
			},
			End: domain.StatusSnapshot{
				Prices:     domain.NewTokenPairAmount(dec(endPrices[0]), dec(endPrices[1])),
				Underlying: domain.UnderlyingValue{Qtty: domain.NewTokenPairAmount(dec(p.endQtty[0]), dec(p.endQtty[1]))},
				Supply:     dec(p.supply),
			},
		},
		Fees: domain.YieldAmount{
			Qtty:        domain.NewTokenPairAmount(dec(fees[0]), dec(fees[1])),
			PeriodYield: dec(feeYield),
		},
		Rewards: domain.RewardsBreakdown{USD: rewardsUSD, Details: p.rewards},
	}
}

// scenarioA is two periods: pps 1.00 -> 1.02 with 10 USD fees, then
// 1.02 -> 1.03 with 5 USD fees. Supply is 1000 throughout.
func scenarioA() []*domain.PeriodRecord {
	return []*domain.PeriodRecord{
		period{
			iniBlock: 100, endBlock: 200, iniTs: 1_700_000_000, endTs: 1_700_001_000,
			iniQtty: [2]string{"500", "500"}, endQtty: [2]string{"510", "510"},
			supply: "1000", fees: [2]string{"5", "5"},
		}.record(),
		period{
			iniBlock: 200, endBlock: 300, iniTs: 1_700_001_000, endTs: 1_700_002_000,
			iniQtty: [2]string{"510", "510"}, endQtty: [2]string{"515", "515"},
			supply: "1000", fees: [2]string{"2.5", "2.5"},
		}.record(),
	}
}

func analyze(t *testing.T, records []*domain.PeriodRecord) *Result {
	t.Helper()
	res, err := NewAnalyzer(domain.ChainEthereum, records, testHypervisor, config.DefaultAnalyzerConfig()).Analyze()
	require.NoError(t, err)
	return res
}

func TestAnalyze_ScenarioA(t *testing.T) {
	res := analyze(t, scenarioA())

	rows := res.Rows()
	require.Len(t, rows, 2)
	last := rows[1]

	assert.True(t, last.Cumulative.FeesUSD.Equal(dec("15")), "fees usd %s", last.Cumulative.FeesUSD)
	assert.True(t, last.Cumulative.HypeROIPerShare.Equal(dec("0.03")), "hype roi %s", last.Cumulative.HypeROIPerShare)
	assert.True(t, last.Cumulative.NetROIYield.Equal(dec("0.03")), "net roi %s", last.Cumulative.NetROIYield)
	assert.True(t, last.Cumulative.FeesYield.Equal(dec("0.015")))
	assert.True(t, last.Cumulative.ImpermanentYield.Equal(dec("0.015")))
	assert.Equal(t, int64(2000), last.Cumulative.Seconds)
	assert.Equal(t, int64(200), last.Cumulative.Blocks)

	assert.True(t, rows[0].Ini.PricePerShare.Equal(dec("1")))
	assert.True(t, rows[0].End.PricePerShare.Equal(dec("1.02")))
	assert.True(t, last.End.PricePerShare.Equal(dec("1.03")))

	// Stable prices: holding the deposit returned nothing.
	hold := last.Hold(HoldDeposited)
	assert.True(t, hold.Yield.IsZero())
	assert.True(t, hold.Outperformance.Equal(dec("0.03")))

	sum := res.Summary()
	assert.Equal(t, 2, sum.Periods)
	assert.Equal(t, 0, sum.Dropped)
	assert.Equal(t, int64(100), sum.Start.Block)
	assert.Equal(t, int64(300), sum.End.Block)
	assert.True(t, sum.BaselinePPS.Equal(dec("1")))
	assert.True(t, sum.FinalPPS.Equal(dec("1.03")))
}

func TestAnalyze_PeriodInvariant(t *testing.T) {
	records := append(scenarioA(), period{
		iniBlock: 300, endBlock: 400, iniTs: 1_700_002_000, endTs: 1_700_005_000,
		iniQtty: [2]string{"515", "515"}, endQtty: [2]string{"490", "530"},
		supply: "1000", fees: [2]string{"1.25", "0.75"}, endPrices: [2]string{"1.01", "0.99"},
	}.record())

	for _, row := range analyze(t, records).Rows() {
		sum := row.Period.FeesUSD.Add(row.Period.ImpermanentUSD)
		assert.True(t, sum.Equal(row.Period.HypeROIQttyUSD),
			"period %s: fees %s + impermanent %s != %s", row.PeriodID,
			row.Period.FeesUSD, row.Period.ImpermanentUSD, row.Period.HypeROIQttyUSD)
	}
}

func TestAnalyze_ZeroSecondFilterIsIdempotent(t *testing.T) {
	degenerate := period{
		iniBlock: 300, endBlock: 301, iniTs: 1_700_002_000, endTs: 1_700_002_000,
		iniQtty: [2]string{"515", "515"}, endQtty: [2]string{"900", "900"},
		supply: "1000",
	}.record()

	withDegenerate := analyze(t, append(scenarioA(), degenerate))
	without := analyze(t, scenarioA())

	assert.Equal(t, without.Rows(), withDegenerate.Rows())
	require.Len(t, withDegenerate.Dropped(), 1)
	assert.Equal(t, DropZeroSeconds, withDegenerate.Dropped()[0].Reason)
}

func TestAnalyze_InputOrderDoesNotMatter(t *testing.T) {
	records := scenarioA()
	reversed := []*domain.PeriodRecord{records[1], records[0]}

	assert.Equal(t, analyze(t, records).Rows(), analyze(t, reversed).Rows())
}

func TestAnalyze_OutlierFilter(t *testing.T) {
	base := period{
		iniBlock: 300, endBlock: 400, iniTs: 1_700_002_000, endTs: 1_700_003_000,
		iniQtty: [2]string{"515", "515"}, endQtty: [2]string{"515", "515"},
		supply: "1000",
	}

	impermanent := base
	impermanent.endQtty = [2]string{"5000", "5000"}

	rewards := base
	rewards.rewards = []domain.RewardDetail{{Symbol: "OP", Qtty: dec("1000"), USD: dec("3000"), Seconds: 1000}}

	fees := base
	fees.feeYield = "3"

	emptySupply := base
	emptySupply.supply = "0"

	unpriced := base.record()
	unpriced.Status.Ini.Prices = domain.TokenPairAmount{}

	withdrawn := base.record()
	withdrawn.Status.End.Supply = decimal.Zero

	tests := []struct {
		name   string
		rec    *domain.PeriodRecord
		reason DropReason
	}{
		{"impermanent above cap", impermanent.record(), DropImpermanentOutlier},
		{"rewards above cap", rewards.record(), DropRewardsOutlier},
		{"fees above cap", fees.record(), DropFeesOutlier},
		{"empty vault at open", emptySupply.record(), DropZeroIniSupply},
		{"unpriced underlying at open", unpriced, DropZeroIniUnderlying},
		{"fully withdrawn at close", withdrawn, DropZeroEndSupply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := analyze(t, append(scenarioA(), tt.rec))
			assert.Len(t, res.Rows(), 2)
			require.Len(t, res.Dropped(), 1)
			assert.Equal(t, tt.reason, res.Dropped()[0].Reason)
		})
	}
}

func TestAnalyze_NoPeriods(t *testing.T) {
	degenerate := period{
		iniBlock: 1, endBlock: 2, iniTs: 10, endTs: 10,
		iniQtty: [2]string{"1", "1"}, endQtty: [2]string{"1", "1"}, supply: "2",
	}.record()

	_, err := NewAnalyzer(domain.ChainEthereum, []*domain.PeriodRecord{degenerate}, testHypervisor, config.DefaultAnalyzerConfig()).Analyze()
	assert.ErrorIs(t, err, ErrNoPeriods)
}

func TestAnnualize(t *testing.T) {
	v := dec("0.03")

	assert.True(t, Annualize(v, 31_536_000).Equal(v), "one full year must be exact")
	assert.True(t, Annualize(v, 15_768_000).Equal(dec("0.06")))
	assert.True(t, Annualize(v, 0).IsZero())

	res := analyze(t, scenarioA())
	last := res.Rows()[1]
	expected := last.Cumulative.NetROIYield.Mul(dec("31536000")).Div(dec("2000"))
	assert.True(t, last.Annualized.NetROIYield.Equal(expected))
}

func TestAnalyze_HoldComparisons(t *testing.T) {
	// token1 doubles in price while the vault keeps its quantities
	rec := period{
		iniBlock: 1, endBlock: 2, iniTs: 1000, endTs: 2000,
		iniQtty: [2]string{"500", "500"}, endQtty: [2]string{"500", "500"},
		supply: "1000", endPrices: [2]string{"1", "2"},
	}.record()

	row := analyze(t, []*domain.PeriodRecord{rec}).Rows()[0]

	assert.True(t, row.Hold(HoldDeposited).Yield.Equal(dec("0.5")))
	assert.True(t, row.Hold(HoldFiftyFifty).Yield.Equal(dec("0.5")))
	assert.True(t, row.Hold(HoldToken0).Yield.IsZero())
	assert.True(t, row.Hold(HoldToken1).Yield.Equal(dec("1")))

	// net 0.5 vs token1-only 1.0: 1.5/2 - 1
	assert.True(t, row.Cumulative.NetROIYield.Equal(dec("0.5")))
	assert.True(t, row.Hold(HoldToken1).Outperformance.Equal(dec("-0.25")))
}

func TestReconcile(t *testing.T) {
	base := Baseline{
		PPS:       dec("1"),
		Prices:    domain.NewTokenPairAmount(dec("1"), dec("1")),
		Deposited: domain.NewTokenPairAmount(dec("0.5"), dec("0.5")),
	}

	ok := State{TokenROIUSD: domain.NewTokenPairAmount(dec("0.02"), dec("0.01")), HypeROIYield: dec("0.03")}
	assert.NoError(t, reconcile(ok, base, dec("0.000001")))

	bad := State{TokenROIUSD: domain.NewTokenPairAmount(dec("0.02"), dec("0.01")), HypeROIYield: dec("0.05")}
	err := reconcile(bad, base, dec("0.000001"))
	assert.True(t, errors.Is(err, ErrConsistencyViolation))
}

func TestAnalyze_ReconcilesAcrossPriceMoves(t *testing.T) {
	// Both tokens reprice and the vault rebalances; the series is continuous.
	records := []*domain.PeriodRecord{
		period{
			iniBlock: 100, endBlock: 200, iniTs: 1000, endTs: 2000,
			iniQtty: [2]string{"500", "500"}, endQtty: [2]string{"300", "900"},
			supply: "1000", endPrices: [2]string{"2.5", "0.4"},
		}.record(),
	}
	second := period{
		iniBlock: 200, endBlock: 300, iniTs: 2000, endTs: 3000,
		iniQtty: [2]string{"300", "900"}, endQtty: [2]string{"350", "700"},
		supply: "1000", endPrices: [2]string{"1.7", "1.3"},
	}.record()
	second.Status.Ini.Prices = domain.NewTokenPairAmount(dec("2.5"), dec("0.4"))
	records = append(records, second)

	res := analyze(t, records)
	last := res.Rows()[1]
	// final pps 350*1.7/1000 + 700*1.3/1000 = 1.505
	assert.True(t, last.End.PricePerShare.Equal(dec("1.505")), "pps %s", last.End.PricePerShare)
	assert.True(t, res.state.TokenROI().Sum().Equal(dec("0.505")), "token roi %s", res.state.TokenROI().Sum())
}

func TestAnalyze_BoundaryMismatchIsConsistencyViolation(t *testing.T) {
	records := scenarioA()
	// The second period opens at the block the first closed, but its opening
	// snapshot reports 600/600 instead of the 510/510 the first one closed at.
	records[1].Status.Ini.Underlying.Qtty = domain.NewTokenPairAmount(dec("600"), dec("600"))

	res, err := NewAnalyzer(domain.ChainEthereum, records, testHypervisor, config.DefaultAnalyzerConfig()).Analyze()
	assert.ErrorIs(t, err, ErrConsistencyViolation)
	assert.Nil(t, res)
}

func TestAnalyze_GapBetweenPeriodsIsNotAViolation(t *testing.T) {
	records := scenarioA()
	// A missing period between blocks 200 and 250 starts a new run.
	records[1].Timeframe.Ini = domain.TimeLocation{Block: 250, Timestamp: 1_700_001_500}
	records[1].Status.Ini.Underlying.Qtty = domain.NewTokenPairAmount(dec("600"), dec("600"))

	_, err := NewAnalyzer(domain.ChainEthereum, records, testHypervisor, config.DefaultAnalyzerConfig()).Analyze()
	assert.NoError(t, err)
}

func TestAnalyze_BootstrapPeriodIsDropped(t *testing.T) {
	// A new vault's history opens with no shares and no underlying.
	bootstrap := period{
		iniBlock: 50, endBlock: 100, iniTs: 1_699_999_000, endTs: 1_700_000_000,
		iniQtty: [2]string{"0", "0"}, endQtty: [2]string{"500", "500"},
		supply: "1000",
	}.record()
	bootstrap.Status.Ini.Supply = decimal.Zero

	res := analyze(t, append([]*domain.PeriodRecord{bootstrap}, scenarioA()...))

	require.Len(t, res.Dropped(), 1)
	assert.Equal(t, DropZeroIniSupply, res.Dropped()[0].Reason)
	require.Len(t, res.Rows(), 2)
	assert.True(t, res.Baseline().PPS.Equal(dec("1")))
	assert.True(t, res.Rows()[1].Cumulative.NetROIYield.Equal(dec("0.03")), "net %s", res.Rows()[1].Cumulative.NetROIYield)
	assert.Equal(t, analyze(t, scenarioA()).Rows(), res.Rows())
}

func seriesOf(n int) []*domain.PeriodRecord {
	records := make([]*domain.PeriodRecord, n)
	for i := 0; i < n; i++ {
		records[i] = period{
			iniBlock: int64(i * 100), endBlock: int64((i + 1) * 100),
			iniTs: int64(i * 1000), endTs: int64((i + 1) * 1000),
			iniQtty: [2]string{"500", "500"}, endQtty: [2]string{"500", "500"},
			supply: "1000", fees: [2]string{"1", "0"},
			rewards: []domain.RewardDetail{{Symbol: "OP", Qtty: dec("2"), USD: dec("3"), Seconds: 1000}},
		}.record()
	}
	return records
}

func TestResult_SimpleRows(t *testing.T) {
	res := analyze(t, seriesOf(5))

	simple := res.SimpleRows(2500)
	require.Len(t, simple, 3)
	assert.Equal(t, int64(1000), simple[0].End.Timestamp)
	assert.Equal(t, int64(4000), simple[1].End.Timestamp)
	assert.Equal(t, int64(5000), simple[2].End.Timestamp, "last row always kept")

	assert.Len(t, res.SimpleRows(0), 5)
	assert.Len(t, res.SimpleRows(1_000_000), 2)
}

func TestResult_RewardsBySymbol(t *testing.T) {
	res := analyze(t, seriesOf(4))

	totals := res.RewardsBySymbol()
	require.Contains(t, totals, "OP")
	op := totals["OP"]
	assert.True(t, op.Qtty.Equal(dec("8")))
	assert.True(t, op.USD.Equal(dec("12")))
	assert.Equal(t, int64(4000), op.Seconds)
	assert.Equal(t, 4, op.Periods)
	assert.Equal(t, []string{"OP"}, res.Summary().RewardTokens)
}

func TestViews(t *testing.T) {
	row := analyze(t, scenarioA()).Rows()[1]

	full := FullView(row)
	periodView := full["period"].(map[string]any)
	fees := periodView["fees"].(map[string]any)
	assert.InDelta(t, 5.0, fees["usd"], 1e-9)
	assert.Contains(t, full, "feeApr")
	assert.Contains(t, full["hold"], HoldFiftyFifty)

	simple := SimpleView(row)
	assert.InDelta(t, 0.03, simple["netYield"], 1e-12)
	assert.Equal(t, int64(1_700_002_000), simple["timestamp"])
	assert.Equal(t, "2023-11-14T22:46:40Z", simple["datetime"])
	assert.Contains(t, simple, "net_vs_hodl_deposited")
	assert.NotContains(t, simple, "period")
}

func TestResult_WriteCSV(t *testing.T) {
	res := analyze(t, scenarioA())

	var buf bytes.Buffer
	require.NoError(t, res.WriteCSV(&buf, "."))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus one line per row")

	header := records[0]
	assert.Contains(t, header, "period.fees.usd")
	assert.Contains(t, header, "status.end.price_per_share")
	assert.IsIncreasing(t, header)

	idx := -1
	for i, h := range header {
		if h == "cumulative.fees.usd" {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "15", records[2][idx])
}
