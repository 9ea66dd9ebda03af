// Package rsatext implements textbook RSA over big integers together with a
// per-character text codec.
// This package holds the shared key types and error values; the algorithms
// live in sub-packages: prime generation (primes), modular arithmetic
// (modmath), key derivation (keygen), the single-integer transform
// (transform) and the text mapping (codec).
//
// WARNING: This is unpadded, deterministic RSA applied one code point at a
// time. Identical characters encrypt to identical units. DO NOT use it to
// protect sensitive data.
package rsatext

// Version of the rsatext Go implementation.
const Version = "1.0.0"

// API summary:
//
// Key generation:
//   - keygen.GenerateKeyPair(bits) - Generate a key pair from two bits-sized primes
//   - keygen.GenerateKeyPairWithParams(params) - Same, with rounds and a retry cap
//
// Text:
//   - codec.EncryptString(text, pub) - Encrypt to space separated decimal units
//   - codec.DecryptString(wire, priv) - Decrypt a whitespace separated unit stream
//   - codec.EncryptText / codec.DecryptText - Same on []*big.Int
//
// Integers:
//   - transform.EncryptUnit(m, e, n) / transform.DecryptUnit(c, d, n)
//   - modmath.ExtendedGCD, modmath.ModInverse, modmath.ModPow
//
// Parameters:
//   - core.GetParams(level) - Get parameters for a key size preset
//   - RSA1024 - 1024-bit primes (the default)
