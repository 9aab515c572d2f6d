// Package fixedpoint implements the scaled-integer arithmetic kernel shared
// by the price view, CDP engine, and stability pool. Every cross-asset
// conversion in those packages routes through mul_div with explicit
// numerator/denominator scales so that price * amount never silently
// overflows a 64-bit intermediate.
package fixedpoint

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// ErrArithmetic is returned whenever a checked operation overflows,
// underflows, or divides by zero. It maps to the ArithmeticError kind.
var ErrArithmetic = errors.New("fixedpoint: arithmetic error")

// Scale is the number of decimal digits the protocol's fixed-point values
// carry. The oracle reports prices at this scale.
const Scale = 14

// One is 10^Scale, the fixed-point unit used by prices and pool constants.
var One = pow10(Scale)

// Int128Min and Int128Max bound the signed 128-bit range every monetary
// quantity (CDP deposits, debt, pool deposits) is checked against.
var (
	Int128Max = mustBigInt("170141183460469231731687303715884105727")
	Int128Min = new(big.Int).Neg(new(big.Int).Add(Int128Max, big.NewInt(1)))
)

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func mustBigInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("fixedpoint: invalid constant " + s)
	}
	return v
}

// MulDiv computes a*b/c truncating toward zero, using a 256-bit-wide
// intermediate so that a*b never overflows before the division. c must be
// non-zero. The result is range-checked against the signed 128-bit bounds
// every monetary quantity in this protocol must respect.
func MulDiv(a, b, c *big.Int) (*big.Int, error) {
	if a == nil || b == nil || c == nil {
		return nil, ErrArithmetic
	}
	if c.Sign() == 0 {
		return nil, ErrArithmetic
	}

	negative := (a.Sign() < 0) != (b.Sign() < 0) != (c.Sign() < 0)

	ua, aOverflow := uint256.FromBig(new(big.Int).Abs(a))
	ub, bOverflow := uint256.FromBig(new(big.Int).Abs(b))
	uc, cOverflow := uint256.FromBig(new(big.Int).Abs(c))
	if aOverflow || bOverflow || cOverflow {
		return nil, ErrArithmetic
	}

	var product uint256.Int
	overflow := product.MulOverflow(ua, ub)
	if overflow {
		return nil, ErrArithmetic
	}

	var quotient uint256.Int
	quotient.Div(&product, uc)

	result := quotient.ToBig()
	if negative {
		result.Neg(result)
	}
	return checkRange(result)
}

// CheckedAdd returns a+b, failing with ErrArithmetic on signed-128 overflow.
func CheckedAdd(a, b *big.Int) (*big.Int, error) {
	if a == nil || b == nil {
		return nil, ErrArithmetic
	}
	return checkRange(new(big.Int).Add(a, b))
}

// CheckedSub returns a-b, failing with ErrArithmetic on signed-128 overflow.
func CheckedSub(a, b *big.Int) (*big.Int, error) {
	if a == nil || b == nil {
		return nil, ErrArithmetic
	}
	return checkRange(new(big.Int).Sub(a, b))
}

// CheckedMul returns a*b, failing with ErrArithmetic on signed-128 overflow.
func CheckedMul(a, b *big.Int) (*big.Int, error) {
	if a == nil || b == nil {
		return nil, ErrArithmetic
	}
	return checkRange(new(big.Int).Mul(a, b))
}

// CheckedDiv returns a/b truncated toward zero, failing with ErrArithmetic on
// division by zero.
func CheckedDiv(a, b *big.Int) (*big.Int, error) {
	if a == nil || b == nil || b.Sign() == 0 {
		return nil, ErrArithmetic
	}
	return checkRange(new(big.Int).Quo(a, b))
}

func checkRange(v *big.Int) (*big.Int, error) {
	if v.Cmp(Int128Min) < 0 || v.Cmp(Int128Max) > 0 {
		return nil, ErrArithmetic
	}
	return v, nil
}

// FromRateBps converts a basis-point rate (0..10_000+) into a fraction
// num/den such that num/den == bps/10_000, for callers that want to carry
// the rate through MulDiv without an intermediate division.
func FromRateBps(bps uint32) (num, den *big.Int) {
	return big.NewInt(int64(bps)), big.NewInt(10_000)
}

// BpsOf computes floor(amount * bps / 10_000) using MulDiv.
func BpsOf(amount *big.Int, bps uint32) (*big.Int, error) {
	num, den := FromRateBps(bps)
	return MulDiv(amount, num, den)
}
