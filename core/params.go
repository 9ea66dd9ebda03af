// Package core provides parameter sets and validation for rsatext.
package core

import (
	"errors"
	"fmt"

	rsatext "github.com/BanPerm/RSA-test-implementation"
	"github.com/BanPerm/RSA-test-implementation/utils"
)

// DefaultMillerRabinRounds bounds the false-positive rate of a prime test
// by 4^-20.
const DefaultMillerRabinRounds = 20

// RSA512Params uses 512-bit primes.
var RSA512Params = rsatext.Params{
	Size:              rsatext.RSA512,
	PrimeBits:         512,
	PublicExponent:    rsatext.DefaultPublicExponent,
	MillerRabinRounds: DefaultMillerRabinRounds,
}

// RSA1024Params uses 1024-bit primes. This is the default.
var RSA1024Params = rsatext.Params{
	Size:              rsatext.RSA1024,
	PrimeBits:         1024,
	PublicExponent:    rsatext.DefaultPublicExponent,
	MillerRabinRounds: DefaultMillerRabinRounds,
}

// RSA2048Params uses 2048-bit primes.
var RSA2048Params = rsatext.Params{
	Size:              rsatext.RSA2048,
	PrimeBits:         2048,
	PublicExponent:    rsatext.DefaultPublicExponent,
	MillerRabinRounds: DefaultMillerRabinRounds,
}

// RSA4096Params uses 4096-bit primes.
var RSA4096Params = rsatext.Params{
	Size:              rsatext.RSA4096,
	PrimeBits:         4096,
	PublicExponent:    rsatext.DefaultPublicExponent,
	MillerRabinRounds: DefaultMillerRabinRounds,
}

// DefaultParams returns the parameter set used when nothing is configured.
func DefaultParams() rsatext.Params {
	return RSA1024Params
}

// GetParams returns the parameter set for the given key size.
func GetParams(size rsatext.KeySize) (rsatext.Params, error) {
	switch size {
	case rsatext.RSA512:
		return RSA512Params, nil
	case rsatext.RSA1024:
		return RSA1024Params, nil
	case rsatext.RSA2048:
		return RSA2048Params, nil
	case rsatext.RSA4096:
		return RSA4096Params, nil
	default:
		return rsatext.Params{}, fmt.Errorf("unknown key size: %s", size)
	}
}

// ParamsForBits returns default parameters with a custom prime bit length.
func ParamsForBits(bits int) (rsatext.Params, error) {
	params := DefaultParams()
	params.Size = rsatext.KeySize(fmt.Sprintf("RSA-%d", bits))
	params.PrimeBits = bits
	if err := ValidateParams(params); err != nil {
		return rsatext.Params{}, err
	}
	return params, nil
}

// ValidateParams validates the parameter set for consistency.
// It does not judge key strength: tiny prime sizes are accepted so that
// tests and demonstrations can run quickly.
func ValidateParams(params rsatext.Params) error {
	if err := utils.CheckBits(params.PrimeBits); err != nil {
		return err
	}
	if params.MillerRabinRounds <= 0 {
		return fmt.Errorf("%w: Miller-Rabin rounds must be positive", rsatext.ErrInvalidArgument)
	}
	if params.MaxAttempts < 0 {
		return fmt.Errorf("%w: max attempts cannot be negative", rsatext.ErrInvalidArgument)
	}
	if params.PublicExponent < 3 || params.PublicExponent%2 == 0 {
		return errors.New("public exponent must be odd and at least 3")
	}
	if !isPrime(params.PublicExponent) {
		return errors.New("public exponent must be prime")
	}
	return nil
}

// isPrime checks if a number is prime using a simple trial division.
// This is used for validating parameters, not for generating large primes.
func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	if n == 2 {
		return true
	}
	if n%2 == 0 {
		return false
	}
	for i := 3; i*i <= n; i += 2 {
		if n%i == 0 {
			return false
		}
	}
	return true
}
