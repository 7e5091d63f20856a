package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Chain identifies the network a hypervisor is deployed on.
type Chain string

// Supported chains.
const (
	ChainEthereum  Chain = "ethereum"
	ChainPolygon   Chain = "polygon"
	ChainOptimism  Chain = "optimism"
	ChainArbitrum  Chain = "arbitrum"
	ChainBase      Chain = "base"
	ChainBSC       Chain = "bsc"
	ChainCelo      Chain = "celo"
	ChainAvalanche Chain = "avalanche"
)

var knownChains = map[Chain]struct{}{
	ChainEthereum:  {},
	ChainPolygon:   {},
	ChainOptimism:  {},
	ChainArbitrum:  {},
	ChainBase:      {},
	ChainBSC:       {},
	ChainCelo:      {},
	ChainAvalanche: {},
}

// ParseChain validates a chain name.
func ParseChain(s string) (Chain, error) {
	c := Chain(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownChains[c]; !ok {
		return "", fmt.Errorf("unknown chain %q", s)
	}
	return c, nil
}

// NormalizeAddress validates a hex address and returns it lowercased.
func NormalizeAddress(s string) (string, error) {
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("invalid address %q", s)
	}
	return strings.ToLower(common.HexToAddress(s).Hex()), nil
}

// Token describes one side of the hypervisor pool.
type Token struct {
	Address  string `json:"address" yaml:"address"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals int    `json:"decimals" yaml:"decimals"`
}

// Hypervisor is the static descriptor of a vault.
// Corresponds to hypervisors table in PostgreSQL.
type Hypervisor struct {
	Chain   Chain  `json:"chain" yaml:"chain"`
	Address string `json:"address" yaml:"address"`
	Symbol  string `json:"symbol" yaml:"symbol"`
	Token0  Token  `json:"token0" yaml:"token0"`
	Token1  Token  `json:"token1" yaml:"token1"`
}

// Validate checks chain and address fields and normalizes addresses in place.
func (h *Hypervisor) Validate() error {
	if _, err := ParseChain(string(h.Chain)); err != nil {
		return err
	}
	addr, err := NormalizeAddress(h.Address)
	if err != nil {
		return fmt.Errorf("hypervisor: %w", err)
	}
	h.Address = addr
	for _, tok := range []*Token{&h.Token0, &h.Token1} {
		if tok.Address == "" {
			continue
		}
		a, err := NormalizeAddress(tok.Address)
		if err != nil {
			return fmt.Errorf("token %s: %w", tok.Symbol, err)
		}
		tok.Address = a
	}
	return nil
}
