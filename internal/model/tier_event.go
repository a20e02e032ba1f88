package model

// Event type tags emitted by the tier engine.
const (
	EventTierChange      = "tier_change"
	EventParamsChange    = "params_change"
	EventAuthorityChange = "authority_change"
	EventStateReset      = "state_reset"
)

// Tier write sources.
const (
	SourceEMA      = "ema"
	SourceOverride = "override"
	SourceReset    = "reset"
)

// TierEvent is the observational notification record published on
// engine state changes. It is informational only; downstream readers
// must treat GetTier as the authoritative value.
type TierEvent struct {
	Type      string `json:"type"`
	Pool      string `json:"pool,omitempty"`
	OldTier   uint8  `json:"old_tier"`
	NewTier   uint8  `json:"new_tier"`
	Source    string `json:"source,omitempty"`
	Timestamp uint64 `json:"timestamp"`
	EmittedAt string `json:"emitted_at"`
}
