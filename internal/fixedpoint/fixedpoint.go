package fixedpoint

import "math/big"

// Scale is the fixed-point base: all fractional quantities are integers
// scaled by 1e18.
var Scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// FromUint converts an integer count into its scaled representation.
func FromUint(n uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(n), Scale)
}

// MulDiv computes a*b/den with the multiplication performed first,
// truncating toward zero. den must be non-zero.
func MulDiv(a, b, den *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, den)
}

// Ratio returns num*Scale/den, or zero when den is nil or zero. The zero
// guard lets callers feed raw event fields without prechecking.
func Ratio(num, den *big.Int) *big.Int {
	if num == nil || den == nil || den.Sign() == 0 {
		return new(big.Int)
	}
	return MulDiv(num, Scale, den)
}

// Abs returns |v| as a fresh value. A nil input is treated as zero.
func Abs(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Abs(v)
}

// Min returns the smaller of a and b as a fresh value.
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// Clamp bounds v into [lo, hi] as a fresh value.
func Clamp(v, lo, hi *big.Int) *big.Int {
	if v.Cmp(lo) < 0 {
		return new(big.Int).Set(lo)
	}
	if v.Cmp(hi) > 0 {
		return new(big.Int).Set(hi)
	}
	return new(big.Int).Set(v)
}
