package rsatext

import (
	"encoding/hex"
	"math/big"

	"github.com/BanPerm/RSA-test-implementation/utils"
)

// KeySize names a parameter preset by the bit length of each prime.
type KeySize string

const (
	// RSA512 uses 512-bit primes (1024-bit modulus).
	RSA512 KeySize = "RSA-512"
	// RSA1024 uses 1024-bit primes (2048-bit modulus).
	RSA1024 KeySize = "RSA-1024"
	// RSA2048 uses 2048-bit primes (4096-bit modulus).
	RSA2048 KeySize = "RSA-2048"
	// RSA4096 uses 4096-bit primes (8192-bit modulus).
	RSA4096 KeySize = "RSA-4096"
)

// DefaultPublicExponent is the Fermat prime F4.
const DefaultPublicExponent = 65537

// =============================================================================
// Parameter Types
// =============================================================================

// Params contains the knobs of prime and key generation.
type Params struct {
	Size              KeySize `json:"size" yaml:"size"`
	// Bit length of each of p and q.
	PrimeBits         int     `json:"prime_bits" yaml:"prime_bits"`
	// e, normally DefaultPublicExponent.
	PublicExponent    int     `json:"public_exponent" yaml:"public_exponent"`
	// Miller-Rabin witnesses per candidate.
	MillerRabinRounds int     `json:"miller_rabin_rounds" yaml:"miller_rabin_rounds"`
	// Soft cap on prime draws and key retries; 0 means unbounded.
	MaxAttempts       int     `json:"max_attempts" yaml:"max_attempts"`
}

// =============================================================================
// Key Types
// =============================================================================

// PublicKey is the (e, n) half of a key pair.
type PublicKey struct {
	E *big.Int
	N *big.Int
}

// PrivateKey is the (d, n) half of a key pair.
type PrivateKey struct {
	D *big.Int
	N *big.Int
}

// KeyPair holds both exponents and the shared modulus.
// The library never mutates a KeyPair after returning it, so a KeyPair can be
// shared read-only between goroutines.
type KeyPair struct {
	PublicExponent  *big.Int
	PrivateExponent *big.Int
	Modulus         *big.Int
}

// Public returns a copy of the public half.
func (kp *KeyPair) Public() PublicKey {
	return PublicKey{
		E: new(big.Int).Set(kp.PublicExponent),
		N: new(big.Int).Set(kp.Modulus),
	}
}

// Private returns a copy of the private half.
func (kp *KeyPair) Private() PrivateKey {
	return PrivateKey{
		D: new(big.Int).Set(kp.PrivateExponent),
		N: new(big.Int).Set(kp.Modulus),
	}
}

// Fingerprint returns a short hex identifier of the public key.
func (kp *KeyPair) Fingerprint() string {
	pub := kp.Public()
	return pub.Fingerprint()
}

// Fingerprint returns a short hex identifier of the public key.
// It is the first 16 bytes of a domain separated SHA3-256 over (e, n).
func (pk PublicKey) Fingerprint() string {
	digest := utils.HashWithDomain(DomainFingerprint, utils.EncodeIntegers(pk.E, pk.N))
	return hex.EncodeToString(digest[:16])
}

// DomainFingerprint separates key fingerprints from any other hash use.
const DomainFingerprint = "rsatext-fingerprint-v1"
