// Package velocity computes instantaneous activity signals from raw swap
// inputs. Both signals are linear approximations of a relative-change
// measure: cheap and deterministic, accurate only in the small-change
// regime.
package velocity

import (
	"math/big"

	"velocityFee/internal/fixedpoint"
)

// Price returns |newRef - oldRef| / oldRef in fixed point. A nil or zero
// oldRef yields zero, which covers the first-ever observation for a pool.
func Price(newRef, oldRef *big.Int) *big.Int {
	if oldRef == nil || oldRef.Sign() == 0 || newRef == nil {
		return new(big.Int)
	}
	diff := new(big.Int).Sub(newRef, oldRef)
	return fixedpoint.Ratio(diff.Abs(diff), fixedpoint.Abs(oldRef))
}

// Flow returns |signedAmount| / |liquidity| in fixed point. Zero or nil
// liquidity yields zero. Both magnitudes are taken, so no sign
// combination of the inputs can drive the signal negative.
func Flow(signedAmount, liquidity *big.Int) *big.Int {
	if liquidity == nil || liquidity.Sign() == 0 || signedAmount == nil {
		return new(big.Int)
	}
	return fixedpoint.Ratio(fixedpoint.Abs(signedAmount), fixedpoint.Abs(liquidity))
}
