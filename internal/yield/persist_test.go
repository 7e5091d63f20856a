package yield

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_AnalyticRows(t *testing.T) {
	res := analyze(t, scenarioA())

	rows := res.AnalyticRows(42)
	require.Len(t, rows, 2)

	last := rows[1]
	assert.Equal(t, "ethereum", last.Chain)
	assert.Equal(t, hvAddr, last.Address)
	assert.Equal(t, int64(200), last.IniBlock)
	assert.Equal(t, int64(300), last.EndBlock)
	assert.Equal(t, int64(2000), last.Seconds)
	assert.InDelta(t, 0.03, last.NetYield, 1e-12)
	assert.InDelta(t, 0.015, last.FeesYield, 1e-12)
	assert.InDelta(t, 1.03, last.PricePerShare, 1e-12)
	assert.InDelta(t, 0.0, last.HoldDepositedYield, 1e-12)
	assert.Equal(t, int64(42), last.ComputedAt)
	assert.Equal(t, res.Rows()[1].PeriodID, last.PeriodID)
}

func TestSummaryView(t *testing.T) {
	view := SummaryView(analyze(t, seriesOf(3)).Summary())

	assert.Equal(t, 3, view["periods"])
	assert.Equal(t, []string{"OP"}, view["reward_tokens"])
	assert.Contains(t, view["hold"], HoldToken0)
	assert.InDelta(t, 1.0, view["baseline_pps"], 1e-12)
}
