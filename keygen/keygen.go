// Package keygen derives textbook RSA key pairs from two random primes and
// the fixed public exponent 65537.
package keygen

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	rsatext "github.com/BanPerm/RSA-test-implementation"
	"github.com/BanPerm/RSA-test-implementation/core"
	"github.com/BanPerm/RSA-test-implementation/internal/logging"
	"github.com/BanPerm/RSA-test-implementation/modmath"
	"github.com/BanPerm/RSA-test-implementation/primes"
	"github.com/BanPerm/RSA-test-implementation/utils"
)

var one = big.NewInt(1)

// GenerateKeyPair generates a key pair whose primes are bits long each.
// It retries until it succeeds; the only errors come from invalid input or
// a failing entropy source.
//
// p and q are drawn independently and are not compared, so the modulus may
// in principle be a square. At cryptographic sizes this has negligible
// probability.
func GenerateKeyPair(bits int) (*rsatext.KeyPair, error) {
	params, err := core.ParamsForBits(bits)
	if err != nil {
		return nil, err
	}
	return GenerateKeyPairWithParams(params)
}

// GenerateKeyPairForSize generates a key pair for a named preset.
func GenerateKeyPairForSize(size rsatext.KeySize) (*rsatext.KeyPair, error) {
	params, err := core.GetParams(size)
	if err != nil {
		return nil, err
	}
	return GenerateKeyPairWithParams(params)
}

// GenerateKeyPairWithParams generates a key pair from an explicit parameter
// set. When params.MaxAttempts is positive it bounds both the candidates
// drawn per prime and the number of (p, q) pairs tried; hitting either bound
// returns an error wrapping rsatext.ErrExhaustedAttempts.
func GenerateKeyPairWithParams(params rsatext.Params) (*rsatext.KeyPair, error) {
	if err := core.ValidateParams(params); err != nil {
		return nil, err
	}

	e := big.NewInt(int64(params.PublicExponent))
	for attempt := 1; params.MaxAttempts == 0 || attempt <= params.MaxAttempts; attempt++ {
		p, q, err := drawPrimes(params)
		if err != nil {
			return nil, err
		}

		n := new(big.Int).Mul(p, q)
		phi := totient(p, q)
		utils.ZeroizeBigInt(p)
		utils.ZeroizeBigInt(q)

		if modmath.GCD(e, phi).Cmp(one) != 0 {
			logging.Debugf("keygen attempt %d: gcd(e, phi) != 1, drawing new primes", attempt)
			utils.ZeroizeBigInt(phi)
			continue
		}
		d, ok := modmath.ModInverse(e, phi)
		utils.ZeroizeBigInt(phi)
		if !ok {
			logging.Debugf("keygen attempt %d: e has no inverse mod phi, drawing new primes", attempt)
			continue
		}

		logging.Debugf("keygen: %d-bit modulus after %d attempt(s)", n.BitLen(), attempt)
		return &rsatext.KeyPair{
			PublicExponent:  e,
			PrivateExponent: d,
			Modulus:         n,
		}, nil
	}
	return nil, fmt.Errorf("%w: no key pair after %d attempts", rsatext.ErrExhaustedAttempts, params.MaxAttempts)
}

// drawPrimes generates p and q in parallel.
func drawPrimes(params rsatext.Params) (p, q *big.Int, err error) {
	var wg sync.WaitGroup
	var pErr, qErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		p, pErr = primes.GeneratePrimeWithParams(params.PrimeBits, params.MillerRabinRounds, params.MaxAttempts)
	}()
	go func() {
		defer wg.Done()
		q, qErr = primes.GeneratePrimeWithParams(params.PrimeBits, params.MillerRabinRounds, params.MaxAttempts)
	}()
	wg.Wait()

	if err := errors.Join(pErr, qErr); err != nil {
		utils.ZeroizeBigInt(p)
		utils.ZeroizeBigInt(q)
		return nil, nil, err
	}
	return p, q, nil
}

// totient returns (p-1)(q-1).
func totient(p, q *big.Int) *big.Int {
	pm1 := new(big.Int).Sub(p, one)
	qm1 := new(big.Int).Sub(q, one)
	phi := new(big.Int).Mul(pm1, qm1)
	utils.ZeroizeBigInt(pm1)
	utils.ZeroizeBigInt(qm1)
	return phi
}

// Validate checks the key pair invariants that can be verified without the
// primes: d is in range and a fixed probe survives a round trip.
func Validate(kp *rsatext.KeyPair) error {
	if kp == nil || kp.PublicExponent == nil || kp.PrivateExponent == nil || kp.Modulus == nil {
		return fmt.Errorf("%w: incomplete key pair", rsatext.ErrInvalidArgument)
	}
	n := kp.Modulus
	if n.Cmp(big.NewInt(3)) < 0 {
		return fmt.Errorf("%w: modulus too small", rsatext.ErrInvalidArgument)
	}
	if kp.PublicExponent.Sign() <= 0 {
		return fmt.Errorf("%w: public exponent must be positive", rsatext.ErrInvalidArgument)
	}
	if kp.PrivateExponent.Sign() <= 0 || kp.PrivateExponent.Cmp(n) >= 0 {
		return fmt.Errorf("%w: private exponent outside (0, n)", rsatext.ErrInvalidArgument)
	}

	probe := big.NewInt(2)
	c, err := modmath.ModPow(probe, kp.PublicExponent, n)
	if err != nil {
		return err
	}
	m, err := modmath.ModPow(c, kp.PrivateExponent, n)
	if err != nil {
		return err
	}
	if m.Cmp(probe) != 0 {
		return fmt.Errorf("%w: exponents do not invert each other", rsatext.ErrInvalidArgument)
	}
	return nil
}
