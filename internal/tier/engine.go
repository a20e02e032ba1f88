// Package tier derives a bounded activity tier per pool from streaming
// swap signals. An exponentially decaying average of a velocity signal
// is mapped through a configurable fee curve onto an integer tier in
// [0, MaxTier]; a rate-limited authority may override the published
// tier directly. Both paths write the same per-pool tier state.
package tier

import (
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"velocityFee/internal/fixedpoint"
	"velocityFee/internal/model"
	"velocityFee/internal/velocity"
)

// MaxTier is the upper bound of the published activity tier.
const MaxTier = 10

// DefaultCooldownSeconds is the minimum spacing between two tier writes
// for a pool unless configured otherwise.
const DefaultCooldownSeconds = 60

// EventSink receives observational notifications of engine state
// changes. Implementations must not call back into the engine.
type EventSink interface {
	Publish(event model.TierEvent)
}

// Config holds engine construction settings.
type Config struct {
	AdminCap        Capability
	AuthorityCap    Capability
	CooldownSeconds uint64
	Events          EventSink
}

// Engine owns the per-pool parameter, observation, and tier-state maps.
// A single mutex serializes every write to a pool's record triple; the
// cooldown check and the read-then-write tier comparison both depend on
// observing a non-stale prior state.
type Engine struct {
	mu        sync.RWMutex
	adminCap  Capability
	authority Capability
	cooldown  uint64
	params    map[model.PoolKey]model.Params
	obs       map[model.PoolKey]*model.Observation
	tiers     map[model.PoolKey]*model.TierState
	events    EventSink
	logger    *zap.Logger
}

// NewEngine builds an engine from the supplied configuration.
func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	cooldown := cfg.CooldownSeconds
	if cooldown == 0 {
		cooldown = DefaultCooldownSeconds
	}
	return &Engine{
		adminCap:  cfg.AdminCap,
		authority: cfg.AuthorityCap,
		cooldown:  cooldown,
		params:    make(map[model.PoolKey]model.Params),
		obs:       make(map[model.PoolKey]*model.Observation),
		tiers:     make(map[model.PoolKey]*model.TierState),
		events:    cfg.Events,
		logger:    logger,
	}
}

// Outcome classifies how Update absorbed an observed swap.
type Outcome uint8

const (
	// OutcomeUnconfigured means the pool has no parameters; nothing changed.
	OutcomeUnconfigured Outcome = iota
	// OutcomeInitialized means this was the first observation; only the
	// reference baseline and timestamp were recorded.
	OutcomeInitialized
	// OutcomeSameInstant means the observation shared an instant with (or
	// preceded) the previous one; only the reference baseline was refreshed.
	OutcomeSameInstant
	// OutcomeApplied means the EMA advanced and the tier was re-derived.
	OutcomeApplied
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnconfigured:
		return "unconfigured"
	case OutcomeInitialized:
		return "initialized"
	case OutcomeSameInstant:
		return "same_instant"
	case OutcomeApplied:
		return "applied"
	default:
		return "unknown"
	}
}

// UpdateResult reports the effect of one Update call.
type UpdateResult struct {
	Outcome     Outcome
	Tier        uint8
	TierChanged bool
	EMA         *big.Int
}

// Update folds one observed swap into the pool's EMA and re-derives its
// tier. It never fails: unconfigured pools, first observations,
// same-instant (or out-of-order) events, zero liquidity, and zero
// baselines are all absorbed as the corresponding no-op outcome.
func (e *Engine) Update(key model.PoolKey, newReference, signedAmount, liquidity *big.Int, now uint64) UpdateResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	params, ok := e.params[key]
	if !ok {
		return UpdateResult{Outcome: OutcomeUnconfigured, Tier: e.currentTier(key)}
	}

	observation := e.obs[key]
	if observation == nil {
		observation = &model.Observation{LastReference: new(big.Int), EMA: new(big.Int)}
		e.obs[key] = observation
	}

	if observation.LastTimestamp == 0 || now <= observation.LastTimestamp {
		outcome := OutcomeSameInstant
		if observation.LastTimestamp == 0 {
			outcome = OutcomeInitialized
			observation.LastTimestamp = now
		}
		setReference(observation, newReference)
		return UpdateResult{Outcome: outcome, Tier: e.currentTier(key), EMA: new(big.Int).Set(observation.EMA)}
	}

	dt := now - observation.LastTimestamp
	alpha := decayAlpha(dt, params.DecayHalfLifeSeconds)

	var signal *big.Int
	switch params.Mode {
	case model.FlowVelocity:
		signal = velocity.Flow(signedAmount, liquidity)
	default:
		signal = velocity.Price(newReference, observation.LastReference)
	}

	// ema_new = (alpha*x + (1-alpha)*ema_old) / Scale, truncating.
	ema := new(big.Int).Mul(alpha, signal)
	carry := new(big.Int).Sub(fixedpoint.Scale, alpha)
	carry.Mul(carry, observation.EMA)
	ema.Add(ema, carry)
	ema.Quo(ema, fixedpoint.Scale)

	derived := DeriveTier(ema, params)
	old := e.currentTier(key)
	changed := derived != old
	if changed {
		// Only a changed tier materialises the record; an untouched tier
		// must not start anyone's cooldown clock.
		state := e.tierState(key)
		state.Tier = derived
		state.LastTierWriteTime = now
		e.publish(model.TierEvent{
			Type:      model.EventTierChange,
			Pool:      key.String(),
			OldTier:   old,
			NewTier:   derived,
			Source:    model.SourceEMA,
			Timestamp: now,
		})
		e.logger.Debug("tier derived",
			zap.String("pool", key.String()),
			zap.Uint8("old", old),
			zap.Uint8("new", derived),
			zap.Uint64("at", now),
		)
	}

	setReference(observation, newReference)
	observation.LastTimestamp = now
	observation.EMA = ema

	return UpdateResult{
		Outcome:     OutcomeApplied,
		Tier:        derived,
		TierChanged: changed,
		EMA:         new(big.Int).Set(ema),
	}
}

// GetTier returns the published tier for a pool, zero for unknown pools.
func (e *Engine) GetTier(key model.PoolKey) uint8 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentTier(key)
}

// TierStateOf returns a snapshot of a pool's tier state.
func (e *Engine) TierStateOf(key model.PoolKey) (model.TierState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	state, ok := e.tiers[key]
	if !ok {
		return model.TierState{}, false
	}
	return *state, true
}

// ObservationOf returns a snapshot of a pool's EMA state.
func (e *Engine) ObservationOf(key model.PoolKey) (model.Observation, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	observation, ok := e.obs[key]
	if !ok {
		return model.Observation{}, false
	}
	return observation.Clone(), true
}

// Pools lists every pool the engine holds any state for.
func (e *Engine) Pools() []model.PoolKey {
	e.mu.RLock()
	defer e.mu.RUnlock()
	seen := make(map[model.PoolKey]struct{}, len(e.params))
	for key := range e.params {
		seen[key] = struct{}{}
	}
	for key := range e.obs {
		seen[key] = struct{}{}
	}
	for key := range e.tiers {
		seen[key] = struct{}{}
	}
	keys := make([]model.PoolKey, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	return keys
}

// DeriveTier maps an EMA value through the pool's fee curve onto a tier.
// ratio = min(ema/target, cap); feeBps = clamp(base + slope*ratio);
// tier = floor((feeBps-min)*MaxTier/(max-min)).
func DeriveTier(ema *big.Int, params model.Params) uint8 {
	if params.MaxBps <= params.MinBps {
		return 0
	}
	ratio := fixedpoint.Min(
		fixedpoint.Ratio(ema, params.Target),
		fixedpoint.FromUint(params.CapMultiplier),
	)
	feeBps := fixedpoint.MulDiv(params.Slope, ratio, fixedpoint.Scale)
	feeBps.Add(feeBps, fixedpoint.FromUint(uint64(params.BaseBps)))

	lo := fixedpoint.FromUint(uint64(params.MinBps))
	hi := fixedpoint.FromUint(uint64(params.MaxBps))
	feeBps = fixedpoint.Clamp(feeBps, lo, hi)

	span := new(big.Int).Sub(hi, lo)
	steps := new(big.Int).Sub(feeBps, lo)
	steps.Mul(steps, big.NewInt(MaxTier))
	steps.Quo(steps, span)
	return uint8(steps.Uint64())
}

// decayAlpha returns min(dt/halfLife, 1) in fixed point, a linear
// approximation of 1-e^(-dt/tau) that saturates to full replacement
// once dt reaches the half-life.
func decayAlpha(dt, halfLifeSeconds uint64) *big.Int {
	if dt >= halfLifeSeconds {
		return new(big.Int).Set(fixedpoint.Scale)
	}
	return fixedpoint.Ratio(
		new(big.Int).SetUint64(dt),
		new(big.Int).SetUint64(halfLifeSeconds),
	)
}

// currentTier reads the published tier without creating state. Callers
// hold at least the read lock.
func (e *Engine) currentTier(key model.PoolKey) uint8 {
	if state, ok := e.tiers[key]; ok {
		return state.Tier
	}
	return 0
}

// tierState returns the pool's tier record, creating it on first write.
// Callers hold the write lock.
func (e *Engine) tierState(key model.PoolKey) *model.TierState {
	state, ok := e.tiers[key]
	if !ok {
		state = &model.TierState{}
		e.tiers[key] = state
	}
	return state
}

func (e *Engine) publish(event model.TierEvent) {
	if e.events == nil {
		return
	}
	event.EmittedAt = time.Now().UTC().Format(time.RFC3339Nano)
	e.events.Publish(event)
}

func setReference(observation *model.Observation, newReference *big.Int) {
	if newReference == nil {
		observation.LastReference = new(big.Int)
		return
	}
	observation.LastReference = new(big.Int).Set(newReference)
}
