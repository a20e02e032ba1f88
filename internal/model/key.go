package model

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// PoolKey identifies a venue/pool. Keys are lowercase hex strings so map
// lookups are total regardless of the checksum casing callers use.
type PoolKey string

// NormalizePoolKey canonicalises an identifier for consistent lookups.
func NormalizePoolKey(raw string) PoolKey {
	return PoolKey(strings.ToLower(strings.TrimSpace(raw)))
}

// PoolKeyFromAddress derives the key for an on-chain pool address.
func PoolKeyFromAddress(addr common.Address) PoolKey {
	return PoolKey(strings.ToLower(addr.Hex()))
}

func (k PoolKey) String() string {
	return string(k)
}
