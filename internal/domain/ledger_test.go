package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "0x1111111111111111111111111111111111111111"

func TestLedgerOperation_RoundTrip(t *testing.T) {
	op := &LedgerOperation{
		HypervisorAddress: testHypervisor,
		UserAddress:       testUser,
		Block:             1234,
		LogIndex:          7,
		Timestamp:         1700000000,
		Topic:             TopicDeposit,
		Balance:           d("100.5"),
		TotalSupply:       d("1000"),
	}

	parsed, err := LedgerOperationFromMap(op.ToMap())
	require.NoError(t, err)

	assert.Equal(t, op.Key(), parsed.Key())
	assert.Equal(t, op.Topic, parsed.Topic)
	assert.Equal(t, op.Timestamp, parsed.Timestamp)
	assert.True(t, op.Balance.Equal(parsed.Balance))
	assert.True(t, op.TotalSupply.Equal(parsed.TotalSupply))
}

func TestLedgerOperation_UpstreamShape(t *testing.T) {
	m := map[string]any{
		"block":             float64(42),
		"user_address":      "0x1111111111111111111111111111111111111111",
		"shares":            map[string]any{"balance": "15"},
		"hypervisor_status": map[string]any{"totalSupply": "150"},
		"topic":             "withdraw",
	}

	op, err := LedgerOperationFromMap(m)
	require.NoError(t, err)

	assert.Equal(t, int64(42), op.Block)
	assert.Equal(t, TopicWithdraw, op.Topic)
	assert.True(t, op.Balance.Equal(d("15")))
	assert.True(t, op.TotalSupply.Equal(d("150")))
}

func TestLedgerOperation_RoundTripKeepsChecksummedAddresses(t *testing.T) {
	op := &LedgerOperation{
		HypervisorAddress: "0x02203F2351E7AC6AB5051205172D3F772DB7D814",
		UserAddress:       "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		Block:             10,
		Balance:           d("1"),
		TotalSupply:       d("2"),
	}

	parsed, err := LedgerOperationFromMap(op.ToMap())
	require.NoError(t, err)
	assert.Equal(t, op.HypervisorAddress, parsed.HypervisorAddress)
	assert.Equal(t, op.UserAddress, parsed.UserAddress)
	assert.Equal(t, op.Key(), parsed.Key())
}

func TestLedgerOperation_IntegerFields(t *testing.T) {
	op, err := LedgerOperationFromMap(map[string]any{"block": float64(42), "logIndex": json.Number("3")})
	require.NoError(t, err)
	assert.Equal(t, int64(42), op.Block)
	assert.Equal(t, 3, op.LogIndex)

	for _, v := range []any{1.5, json.Number("1.5"), "1.5", d("7.25")} {
		_, err := LedgerOperationFromMap(map[string]any{"block": v})
		assert.Error(t, err, "block %v", v)
	}
}

func TestLedgerOperation_UnknownTopic(t *testing.T) {
	_, err := LedgerOperationFromMap(map[string]any{"topic": "mint"})
	assert.Error(t, err)
}

func TestCompareLedgerOperations(t *testing.T) {
	a := &LedgerOperation{Block: 10, LogIndex: 2}
	b := &LedgerOperation{Block: 10, LogIndex: 3}
	c := &LedgerOperation{Block: 9, LogIndex: 50}

	assert.Equal(t, -1, CompareLedgerOperations(a, b))
	assert.Equal(t, 1, CompareLedgerOperations(a, c))
}

func TestHypervisor_Validate(t *testing.T) {
	h := &Hypervisor{
		Chain:   "ethereum",
		Address: "0x02203F2351E7AC6AB5051205172D3F772DB7D814",
		Token0:  Token{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6},
	}
	require.NoError(t, h.Validate())
	assert.Equal(t, testHypervisor, h.Address)
	assert.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", h.Token0.Address)

	bad := &Hypervisor{Chain: "solaris", Address: testHypervisor}
	assert.Error(t, bad.Validate())
}
