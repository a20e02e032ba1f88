package model

import "math/big"

// Observation is the running EMA state for a pool. LastTimestamp zero
// means the EMA path has never run for the key.
type Observation struct {
	LastTimestamp uint64   `json:"last_timestamp"`
	LastReference *big.Int `json:"last_reference"`
	EMA           *big.Int `json:"ema"`
}

// Clone returns a deep copy with duplicated big.Int values.
func (o Observation) Clone() Observation {
	clone := o
	if o.LastReference != nil {
		clone.LastReference = new(big.Int).Set(o.LastReference)
	}
	if o.EMA != nil {
		clone.EMA = new(big.Int).Set(o.EMA)
	}
	return clone
}

// TierState is the single published activity value for a pool, written
// by both the EMA path and the authorized override path.
type TierState struct {
	Tier              uint8  `json:"tier"`
	LastTierWriteTime uint64 `json:"last_tier_write_time"`
}

// TierSnapshot is the persisted view of a pool's engine state, with the
// EMA serialized as a decimal string to survive any numeric width.
type TierSnapshot struct {
	Pool              string `json:"pool"`
	Tier              uint8  `json:"tier"`
	LastTierWriteTime uint64 `json:"last_tier_write_time"`
	EMA               string `json:"ema"`
	LastObserved      uint64 `json:"last_observed"`
}
