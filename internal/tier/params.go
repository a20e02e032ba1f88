package tier

import (
	"fmt"

	"go.uber.org/zap"

	"velocityFee/internal/model"
)

// SetParameters validates and installs the fee-curve record for a pool,
// replacing any prior record. Requires the administrative capability.
func (e *Engine) SetParameters(cap Capability, key model.PoolKey, params model.Params) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.adminCap.matches(cap) {
		return ErrUnauthorized
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	e.params[key] = params.Clone()
	e.publish(model.TierEvent{
		Type: model.EventParamsChange,
		Pool: key.String(),
	})
	e.logger.Info("parameters updated",
		zap.String("pool", key.String()),
		zap.String("mode", params.Mode.String()),
		zap.Uint32("base_bps", params.BaseBps),
		zap.Uint32("min_bps", params.MinBps),
		zap.Uint32("max_bps", params.MaxBps),
		zap.Uint64("half_life_s", params.DecayHalfLifeSeconds),
	)
	return nil
}

// SetDefaultParameters installs the documented default curve for a pool.
func (e *Engine) SetDefaultParameters(cap Capability, key model.PoolKey, mode model.Mode) error {
	return e.SetParameters(cap, key, model.DefaultParams(mode))
}

// GetParameters returns a copy of the pool's parameter record, reporting
// false for unconfigured pools.
func (e *Engine) GetParameters(key model.PoolKey) (model.Params, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	params, ok := e.params[key]
	if !ok {
		return model.Params{}, false
	}
	return params.Clone(), true
}
