package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputePeriodID computes a deterministic period_id using SHA256.
// Formula: SHA256(chain|address|ini_block|end_block)
// Returns hex-encoded hash (64 characters).
func ComputePeriodID(chain, address string, iniBlock, endBlock int64) string {
	data := fmt.Sprintf("%s|%s|%d|%d", chain, address, iniBlock, endBlock)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeWindowID computes a deterministic window_id for a TWA window.
// Formula: SHA256(chain|hypervisor|unit|start|end)
func ComputeWindowID(chain, hypervisor, unit string, start, end int64) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d", chain, hypervisor, unit, start, end)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
