// Package transform applies the RSA permutation to a single integer.
package transform

import (
	"fmt"
	"math/big"

	rsatext "github.com/BanPerm/RSA-test-implementation"
	"github.com/BanPerm/RSA-test-implementation/modmath"
)

// EncryptUnit returns m^e mod n. m is reduced modulo n first, so callers
// must keep m in [0, n) for DecryptUnit to return it unchanged.
func EncryptUnit(m, e, n *big.Int) (*big.Int, error) {
	return apply(m, e, n)
}

// DecryptUnit returns c^d mod n.
func DecryptUnit(c, d, n *big.Int) (*big.Int, error) {
	return apply(c, d, n)
}

// EncryptWith encrypts m under a public key.
func EncryptWith(pub rsatext.PublicKey, m *big.Int) (*big.Int, error) {
	return EncryptUnit(m, pub.E, pub.N)
}

// DecryptWith decrypts c under a private key.
func DecryptWith(priv rsatext.PrivateKey, c *big.Int) (*big.Int, error) {
	return DecryptUnit(c, priv.D, priv.N)
}

func apply(x, exp, n *big.Int) (*big.Int, error) {
	if x == nil || exp == nil || n == nil {
		return nil, fmt.Errorf("%w: nil operand", rsatext.ErrInvalidArgument)
	}
	if n.Sign() <= 0 {
		return nil, fmt.Errorf("%w: modulus must be positive", rsatext.ErrInvalidArgument)
	}
	// Mod is Euclidean, so negative inputs land in [0, n).
	reduced := new(big.Int).Mod(x, n)
	return modmath.ModPow(reduced, exp, n)
}
