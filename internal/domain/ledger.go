package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Ledger operation topics.
const (
	TopicDeposit      = "deposit"
	TopicWithdraw     = "withdraw"
	TopicTransfer     = "transfer"
	TopicRebalance    = "rebalance"
	TopicZeroFeeReset = "zero-fee-reset"
)

// ValidTopic reports whether topic is a known ledger operation topic.
func ValidTopic(topic string) bool {
	switch topic {
	case TopicDeposit, TopicWithdraw, TopicTransfer, TopicRebalance, TopicZeroFeeReset:
		return true
	}
	return false
}

// LedgerOperation is one share-balance-changing event for a user.
// Balance is the user's share balance after the operation and TotalSupply
// the hypervisor supply at that block.
type LedgerOperation struct {
	HypervisorAddress string          `json:"hypervisor_address"`
	UserAddress       string          `json:"user_address"`
	Block             int64           `json:"block"`
	LogIndex          int             `json:"log_index"` // secondary order within a block
	Timestamp         int64           `json:"timestamp"`
	Topic             string          `json:"topic"`
	Balance           decimal.Decimal `json:"balance"`
	TotalSupply       decimal.Decimal `json:"total_supply"`
}

// Key returns the unique key of the operation.
func (o *LedgerOperation) Key() string {
	return fmt.Sprintf("%s|%d|%d|%s", o.HypervisorAddress, o.Block, o.LogIndex, o.UserAddress)
}

// ToMap converts the operation to the upstream ledger shape.
func (o *LedgerOperation) ToMap() map[string]any {
	return map[string]any{
		"hypervisor_address": o.HypervisorAddress,
		"user_address":       o.UserAddress,
		"block":              o.Block,
		"logIndex":           int64(o.LogIndex),
		"timestamp":          o.Timestamp,
		"topic":              o.Topic,
		"shares": map[string]any{
			"balance": o.Balance.String(),
		},
		"hypervisor_status": map[string]any{
			"totalSupply": o.TotalSupply.String(),
		},
	}
}

// LedgerOperationFromMap parses an upstream ledger entry.
func LedgerOperationFromMap(m map[string]any) (*LedgerOperation, error) {
	var (
		op  LedgerOperation
		err error
	)
	if op.HypervisorAddress, err = stringField(m, "hypervisor_address"); err != nil {
		return nil, err
	}
	if op.UserAddress, err = stringField(m, "user_address"); err != nil {
		return nil, err
	}
	if op.Block, err = int64Field(m, "block"); err != nil {
		return nil, err
	}
	logIndex, err := int64Field(m, "logIndex")
	if err != nil {
		return nil, err
	}
	op.LogIndex = int(logIndex)
	if op.Timestamp, err = int64Field(m, "timestamp"); err != nil {
		return nil, err
	}
	if op.Topic, err = stringField(m, "topic"); err != nil {
		return nil, err
	}
	if op.Topic != "" && !ValidTopic(op.Topic) {
		return nil, fmt.Errorf("unknown ledger topic %q", op.Topic)
	}
	if op.Balance, err = decimalField(subMap(m, "shares"), "balance"); err != nil {
		return nil, err
	}
	if op.TotalSupply, err = decimalField(subMap(m, "hypervisor_status"), "totalSupply"); err != nil {
		return nil, err
	}
	return &op, nil
}

// CompareLedgerOperations orders operations by block, log index, then user.
func CompareLedgerOperations(a, b *LedgerOperation) int {
	switch {
	case a.Block != b.Block:
		return cmpInt64(a.Block, b.Block)
	case a.LogIndex != b.LogIndex:
		return cmpInt64(int64(a.LogIndex), int64(b.LogIndex))
	case a.UserAddress < b.UserAddress:
		return -1
	case a.UserAddress > b.UserAddress:
		return 1
	}
	return 0
}
