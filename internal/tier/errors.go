package tier

import "errors"

// Sentinel errors returned by the engine's administrative and override
// surfaces. The hot Update path never returns an error.
var (
	// ErrUnauthorized indicates the caller lacks the required capability.
	ErrUnauthorized = errors.New("tier: caller lacks required capability")
	// ErrInvalidTier indicates a tier value outside [0, MaxTier].
	ErrInvalidTier = errors.New("tier: tier value out of range")
	// ErrInvalidParameters indicates a parameter record that fails validation.
	ErrInvalidParameters = errors.New("tier: invalid parameters")
	// ErrTooFrequent indicates the per-pool override cooldown has not elapsed.
	ErrTooFrequent = errors.New("tier: tier write cooldown has not elapsed")
)
