package tier

import (
	"fmt"

	"go.uber.org/zap"

	"velocityFee/internal/model"
)

// SetTier writes the published tier for a pool directly, bypassing the
// EMA path. Restricted to the configured authority and rate-limited per
// pool; the call either fully succeeds or fully fails.
func (e *Engine) SetTier(cap Capability, key model.PoolKey, value uint8, now uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.authority.matches(cap) {
		return ErrUnauthorized
	}
	if value > MaxTier {
		return ErrInvalidTier
	}
	if e.cooling(e.tiers[key], now) {
		return ErrTooFrequent
	}
	e.commitOverride(key, e.tierState(key), value, now)
	return nil
}

// SetTierBatch applies overrides for several pools in one call. Values
// are validated up front; a pool whose cooldown has not elapsed is
// silently skipped rather than failing the batch. Returns the keys that
// were actually written.
func (e *Engine) SetTierBatch(cap Capability, keys []model.PoolKey, values []uint8, now uint64) ([]model.PoolKey, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.authority.matches(cap) {
		return nil, ErrUnauthorized
	}
	if len(keys) != len(values) {
		return nil, fmt.Errorf("tier: batch size mismatch: %d keys, %d values", len(keys), len(values))
	}
	for _, value := range values {
		if value > MaxTier {
			return nil, ErrInvalidTier
		}
	}

	applied := make([]model.PoolKey, 0, len(keys))
	for i, key := range keys {
		if e.cooling(e.tiers[key], now) {
			continue
		}
		e.commitOverride(key, e.tierState(key), values[i], now)
		applied = append(applied, key)
	}
	return applied, nil
}

// ChangeAuthority replaces the capability trusted by the override path.
// Requires the administrative capability.
func (e *Engine) ChangeAuthority(cap Capability, newAuthority Capability) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.adminCap.matches(cap) {
		return ErrUnauthorized
	}
	e.authority = newAuthority
	e.publish(model.TierEvent{Type: model.EventAuthorityChange})
	e.logger.Info("override authority changed")
	return nil
}

// ResetState zeroes a pool's observation and tier state. The reset
// stamps the tier write time, so a fresh cooldown window starts at now.
// Requires the administrative capability.
func (e *Engine) ResetState(cap Capability, key model.PoolKey, now uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.adminCap.matches(cap) {
		return ErrUnauthorized
	}
	old := e.currentTier(key)
	delete(e.obs, key)
	e.tiers[key] = &model.TierState{Tier: 0, LastTierWriteTime: now}
	e.publish(model.TierEvent{
		Type:      model.EventStateReset,
		Pool:      key.String(),
		OldTier:   old,
		NewTier:   0,
		Source:    model.SourceReset,
		Timestamp: now,
	})
	e.logger.Info("pool state reset", zap.String("pool", key.String()), zap.Uint64("at", now))
	return nil
}

// cooling reports whether the pool's cooldown window is still open. A
// nil state means the pool's tier has never been written, which never
// blocks. Out-of-order timestamps count as still cooling.
func (e *Engine) cooling(state *model.TierState, now uint64) bool {
	if state == nil {
		return false
	}
	if now < state.LastTierWriteTime {
		return true
	}
	return now-state.LastTierWriteTime < e.cooldown
}

// commitOverride performs the shared write for both override entry
// points. Callers hold the write lock and have passed all checks.
func (e *Engine) commitOverride(key model.PoolKey, state *model.TierState, value uint8, now uint64) {
	old := state.Tier
	state.Tier = value
	state.LastTierWriteTime = now
	e.publish(model.TierEvent{
		Type:      model.EventTierChange,
		Pool:      key.String(),
		OldTier:   old,
		NewTier:   value,
		Source:    model.SourceOverride,
		Timestamp: now,
	})
	e.logger.Info("tier override",
		zap.String("pool", key.String()),
		zap.Uint8("old", old),
		zap.Uint8("new", value),
		zap.Uint64("at", now),
	)
}
