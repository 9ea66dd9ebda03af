// Package modmath implements the modular arithmetic RSA is built on:
// the extended Euclidean algorithm, modular inverses and modular
// exponentiation.
package modmath

import (
	"fmt"
	"math/big"

	rsatext "github.com/BanPerm/RSA-test-implementation"
)

var one = big.NewInt(1)

// ExtendedGCD returns g = gcd(a, b) together with Bézout coefficients x, y
// such that a*x + b*y = g. g is never negative.
// ExtendedGCD(a, 0) is (|a|, ±1, 0).
func ExtendedGCD(a, b *big.Int) (g, x, y *big.Int) {
	oldR, r := new(big.Int).Set(a), new(big.Int).Set(b)
	oldS, s := big.NewInt(1), big.NewInt(0)
	oldT, t := big.NewInt(0), big.NewInt(1)

	q := new(big.Int)
	tmp := new(big.Int)
	for r.Sign() != 0 {
		q.Div(oldR, r)

		// (oldR, r) = (r, oldR - q*r), same for s and t
		tmp.Mul(q, r)
		oldR.Sub(oldR, tmp)
		oldR, r = r, oldR

		tmp.Mul(q, s)
		oldS.Sub(oldS, tmp)
		oldS, s = s, oldS

		tmp.Mul(q, t)
		oldT.Sub(oldT, tmp)
		oldT, t = t, oldT
	}

	if oldR.Sign() < 0 {
		oldR.Neg(oldR)
		oldS.Neg(oldS)
		oldT.Neg(oldT)
	}
	return oldR, oldS, oldT
}

// GCD returns the non-negative greatest common divisor of a and b.
func GCD(a, b *big.Int) *big.Int {
	g, _, _ := ExtendedGCD(a, b)
	return g
}

// ModInverse returns x in [0, m) with a*x ≡ 1 (mod m).
// ok is false when no inverse exists (gcd(a, m) != 1) or m is not positive;
// that is an expected outcome, not an error.
func ModInverse(a, m *big.Int) (x *big.Int, ok bool) {
	if m.Sign() <= 0 {
		return nil, false
	}
	g, x, _ := ExtendedGCD(a, m)
	if g.Cmp(one) != 0 {
		return nil, false
	}
	return x.Mod(x, m), true
}

// ModInverseErr is ModInverse for callers that want an error value.
// It returns rsatext.ErrNoInverse when the inverse does not exist.
func ModInverseErr(a, m *big.Int) (*big.Int, error) {
	x, ok := ModInverse(a, m)
	if !ok {
		return nil, fmt.Errorf("%w: gcd(%s, %s) != 1", rsatext.ErrNoInverse, a, m)
	}
	return x, nil
}

// ModPow returns base^exponent mod modulus, always in [0, modulus).
// The base is reduced first, so negative bases are fine. The exponent must be
// non-negative and the modulus positive.
// The work is square-and-multiply (windowed, Montgomery form for odd moduli)
// as done by math/big; timing is not constant.
func ModPow(base, exponent, modulus *big.Int) (*big.Int, error) {
	if modulus == nil || modulus.Sign() <= 0 {
		return nil, fmt.Errorf("%w: modulus must be positive", rsatext.ErrInvalidArgument)
	}
	if exponent == nil || exponent.Sign() < 0 {
		return nil, fmt.Errorf("%w: exponent must be non-negative", rsatext.ErrInvalidArgument)
	}
	if modulus.Cmp(one) == 0 {
		return new(big.Int), nil
	}
	b := new(big.Int).Mod(base, modulus)
	return b.Exp(b, exponent, modulus), nil
}
