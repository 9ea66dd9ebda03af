// Package utils provides utility functions for rsatext.
// This file contains input limits and validation helpers that keep untrusted
// input (bit lengths, ciphertext streams, key files) from forcing huge
// allocations or computations.

package utils

import (
	"errors"
	"fmt"
)

// Maximum allowed sizes for values that may come from untrusted input.
const (
	// MaxPrimeBits is the largest accepted prime bit length.
	MaxPrimeBits = 1 << 14 // 16384

	// MaxMessageRunes is the largest number of code points handled in one call.
	MaxMessageRunes = 1 << 22 // 4M characters

	// MaxKeyFileSize bounds key files read from disk.
	MaxKeyFileSize = 1 << 20 // 1MB

	// MaxInputFileSize bounds plaintext and ciphertext files read by the CLI.
	MaxInputFileSize = 100 * 1024 * 1024 // 100MB
)

var (
	// ErrInvalidArgument indicates an input outside the domain of an operation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrExceedsLimit indicates a value exceeds the allowed limit.
	ErrExceedsLimit = errors.New("value exceeds allowed limit")

	// ErrInvalidLength indicates an invalid length value.
	ErrInvalidLength = errors.New("invalid length")
)

// CheckLength validates that length is within [0, maxAllowed].
func CheckLength(length, maxAllowed int) error {
	if length < 0 {
		return ErrInvalidLength
	}
	if length > maxAllowed {
		return ErrExceedsLimit
	}
	return nil
}

// CheckPositive validates that value is > 0.
func CheckPositive(value int, name string) error {
	if value <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidArgument, name)
	}
	return nil
}

// CheckBits validates a prime bit length: at least 2 and at most MaxPrimeBits.
func CheckBits(bits int) error {
	if bits < 2 {
		return fmt.Errorf("%w: bit length %d, need at least 2", ErrInvalidArgument, bits)
	}
	if bits > MaxPrimeBits {
		return fmt.Errorf("bit length %d: %w", bits, ErrExceedsLimit)
	}
	return nil
}
