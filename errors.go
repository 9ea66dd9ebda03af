package rsatext

import (
	"errors"
	"fmt"

	"github.com/BanPerm/RSA-test-implementation/utils"
)

var (
	// ErrInvalidArgument is returned for bit lengths below 2, negative moduli
	// or exponents, and other inputs outside an operation's domain.
	ErrInvalidArgument = utils.ErrInvalidArgument

	// ErrInvalidCodepoint is returned when an integer cannot be turned back
	// into a Unicode scalar value. It wraps ErrInvalidArgument.
	ErrInvalidCodepoint = fmt.Errorf("%w: codepoint outside unicode scalar range", ErrInvalidArgument)

	// ErrNoInverse signals that a modular inverse does not exist.
	// Key generation recovers from it by drawing new primes; it never
	// reaches callers of keygen.
	ErrNoInverse = errors.New("no modular inverse")

	// ErrMalformedCiphertext is returned when a ciphertext token is not a
	// decimal integer or is not in [0, n).
	ErrMalformedCiphertext = errors.New("malformed ciphertext")

	// ErrExhaustedAttempts is returned when a soft retry cap is configured
	// and prime or key generation hits it.
	ErrExhaustedAttempts = errors.New("exhausted generation attempts")
)
