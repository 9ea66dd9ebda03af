package utils

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"runtime"
)

// RandReader is the entropy source for every draw in the module.
// Tests may swap it to inject failures; it must stay a CSPRNG otherwise.
var RandReader io.Reader = rand.Reader

var one = big.NewInt(1)

// SecureRandomBytes generates n cryptographically secure random bytes.
// It uses crypto/rand, which relies on the operating system's CSPRNG.
func SecureRandomBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrInvalidLength
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(RandReader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// RandomBigInt returns a uniform random integer in [0, max).
// crypto/rand.Int rejects out-of-range samples instead of reducing them, so
// the result is unbiased.
func RandomBigInt(max *big.Int) (*big.Int, error) {
	if max == nil || max.Sign() <= 0 {
		return nil, fmt.Errorf("%w: max must be positive", ErrInvalidArgument)
	}
	return rand.Int(RandReader, max)
}

// RandomBigIntRange returns a uniform random integer in the closed interval [lo, hi].
func RandomBigIntRange(lo, hi *big.Int) (*big.Int, error) {
	if lo == nil || hi == nil || hi.Cmp(lo) < 0 {
		return nil, fmt.Errorf("%w: empty range", ErrInvalidArgument)
	}
	span := new(big.Int).Sub(hi, lo)
	span.Add(span, one)
	r, err := rand.Int(RandReader, span)
	if err != nil {
		return nil, err
	}
	return r.Add(r, lo), nil
}

// RandomOddBits returns a uniform odd integer in [2^(n-1)+1, 2^n-1], i.e. an
// odd number of exactly n bits.
// It samples an index among the 2^(n-2) odd candidates and places it between
// the forced top and bottom bits.
func RandomOddBits(n int) (*big.Int, error) {
	if err := CheckBits(n); err != nil {
		return nil, err
	}

	count := new(big.Int).Lsh(one, uint(n-2))
	v, err := rand.Int(RandReader, count)
	if err != nil {
		return nil, err
	}
	v.Lsh(v, 1)
	v.SetBit(v, 0, 1)
	v.SetBit(v, n-1, 1)
	return v, nil
}

// ZeroizeBigInt overwrites the words of x and sets it to zero.
// Used to clear the prime factors once a key has been derived.
func ZeroizeBigInt(x *big.Int) {
	if x == nil {
		return
	}
	words := x.Bits()
	for i := range words {
		words[i] = 0
	}
	x.SetInt64(0)
	runtime.KeepAlive(words)
}

// Zeroize overwrites a byte slice with zeros.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
