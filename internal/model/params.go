package model

import (
	"errors"
	"math/big"
)

// Mode selects which velocity signal drives a pool's EMA.
type Mode uint8

const (
	// PriceVelocity derives the signal from relative reference-price moves.
	PriceVelocity Mode = iota
	// FlowVelocity derives the signal from swap size relative to liquidity.
	FlowVelocity
)

func (m Mode) String() string {
	switch m {
	case PriceVelocity:
		return "price"
	case FlowVelocity:
		return "flow"
	default:
		return "unknown"
	}
}

// ParseMode maps a config string onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "price", "":
		return PriceVelocity, nil
	case "flow":
		return FlowVelocity, nil
	default:
		return 0, errors.New("model: unknown velocity mode: " + s)
	}
}

// Params is the per-pool fee-curve configuration. Target and Slope are
// 1e18-scaled fixed-point values.
type Params struct {
	BaseBps              uint32   `json:"base_bps"`
	MinBps               uint32   `json:"min_bps"`
	MaxBps               uint32   `json:"max_bps"`
	DecayHalfLifeSeconds uint64   `json:"decay_half_life_seconds"`
	Target               *big.Int `json:"target"`
	Slope                *big.Int `json:"slope"`
	CapMultiplier        uint64   `json:"cap_multiplier"`
	Mode                 Mode     `json:"mode"`
}

// Validate checks the curve invariants before a record is accepted.
func (p Params) Validate() error {
	if p.MinBps >= p.MaxBps {
		return errors.New("model: min bps must be below max bps")
	}
	if p.DecayHalfLifeSeconds == 0 {
		return errors.New("model: decay half-life must be positive")
	}
	if p.Target == nil || p.Target.Sign() <= 0 {
		return errors.New("model: target must be positive")
	}
	if p.Slope == nil || p.Slope.Sign() < 0 {
		return errors.New("model: slope must not be negative")
	}
	if p.CapMultiplier == 0 {
		return errors.New("model: cap multiplier must be positive")
	}
	return nil
}

// Clone returns a deep copy so stored records never alias caller values.
func (p Params) Clone() Params {
	clone := p
	if p.Target != nil {
		clone.Target = new(big.Int).Set(p.Target)
	}
	if p.Slope != nil {
		clone.Slope = new(big.Int).Set(p.Slope)
	}
	return clone
}

// DefaultParams returns the documented default curve for a mode: a 30 bps
// base fee inside a [10, 100] bps band, 3-minute half-life, 5% velocity
// target, 35 bps of fee per unit of EMA/target ratio, ratio capped at 3x.
func DefaultParams(mode Mode) Params {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	target := new(big.Int).Div(scale, big.NewInt(20))
	slope := new(big.Int).Mul(big.NewInt(35), scale)
	return Params{
		BaseBps:              30,
		MinBps:               10,
		MaxBps:               100,
		DecayHalfLifeSeconds: 180,
		Target:               target,
		Slope:                slope,
		CapMultiplier:        3,
		Mode:                 mode,
	}
}
