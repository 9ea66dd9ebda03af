// Package codec maps text to integers one code point at a time and applies
// the RSA transform to each integer independently.
//
// Every character is encrypted on its own with no padding, so equal
// characters under the same key always produce equal units.
package codec

import (
	"fmt"
	"math/big"
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"

	rsatext "github.com/BanPerm/RSA-test-implementation"
	"github.com/BanPerm/RSA-test-implementation/transform"
	"github.com/BanPerm/RSA-test-implementation/utils"
)

const (
	maxRune      = 0x10FFFF
	surrogateMin = 0xD800
	surrogateMax = 0xDFFF
)

// CiphertextError reports a unit of an encrypted stream that is not a
// decimal integer in [0, n). It wraps rsatext.ErrMalformedCiphertext.
type CiphertextError struct {
	Index  int    // position of the unit, starting at 0
	Token  string // offending token, possibly shortened
	Reason string
}

func (e *CiphertextError) Error() string {
	return fmt.Sprintf("%v: unit %d (%q): %s", rsatext.ErrMalformedCiphertext, e.Index, e.Token, e.Reason)
}

func (e *CiphertextError) Unwrap() error {
	return rsatext.ErrMalformedCiphertext
}

func malformed(index int, token, reason string) *CiphertextError {
	if len(token) > 32 {
		token = token[:32] + "..."
	}
	return &CiphertextError{Index: index, Token: token, Reason: reason}
}

// TextToUnits returns the code point of every character of s, in order.
// Byte sequences that are not valid UTF-8 become U+FFFD.
func TextToUnits(s string) []*big.Int {
	units := make([]*big.Int, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		units = append(units, big.NewInt(int64(r)))
	}
	return units
}

// UnitsToText is the inverse of TextToUnits. It returns an error wrapping
// rsatext.ErrInvalidCodepoint if a value is negative, a surrogate, or above
// U+10FFFF.
func UnitsToText(units []*big.Int) (string, error) {
	var sb strings.Builder
	sb.Grow(len(units))
	for i, u := range units {
		r, err := toRune(u)
		if err != nil {
			return "", fmt.Errorf("unit %d: %w", i, err)
		}
		sb.WriteRune(r)
	}
	return sb.String(), nil
}

func toRune(u *big.Int) (rune, error) {
	if u == nil || !u.IsInt64() {
		return 0, rsatext.ErrInvalidCodepoint
	}
	v := u.Int64()
	if v < 0 || v > maxRune || (v >= surrogateMin && v <= surrogateMax) {
		return 0, fmt.Errorf("%w: %d", rsatext.ErrInvalidCodepoint, v)
	}
	return rune(v), nil
}

// EncryptText encrypts every code point of s with the public exponent e.
// A code point that is not below n cannot be recovered, so it is rejected
// with rsatext.ErrInvalidArgument rather than reduced.
func EncryptText(s string, e, n *big.Int) ([]*big.Int, error) {
	if err := checkModulus(n); err != nil {
		return nil, err
	}
	if err := utils.CheckLength(utf8.RuneCountInString(s), utils.MaxMessageRunes); err != nil {
		return nil, err
	}
	units := TextToUnits(s)
	for i, u := range units {
		if u.Cmp(n) >= 0 {
			return nil, fmt.Errorf("%w: code point %d at %d is not below the modulus", rsatext.ErrInvalidArgument, u, i)
		}
	}
	return mapUnits(units, func(m *big.Int) (*big.Int, error) {
		return transform.EncryptUnit(m, e, n)
	})
}

// DecryptText decrypts units with the private exponent d and reassembles the
// text. A unit outside [0, n) yields a *CiphertextError.
func DecryptText(units []*big.Int, d, n *big.Int) (string, error) {
	if err := checkModulus(n); err != nil {
		return "", err
	}
	for i, c := range units {
		if c == nil {
			return "", malformed(i, "", "missing unit")
		}
		if c.Sign() < 0 || c.Cmp(n) >= 0 {
			return "", malformed(i, c.String(), "not in [0, n)")
		}
	}
	plain, err := mapUnits(units, func(c *big.Int) (*big.Int, error) {
		return transform.DecryptUnit(c, d, n)
	})
	if err != nil {
		return "", err
	}
	return UnitsToText(plain)
}

// FormatUnits renders units as decimal integers separated by single spaces.
func FormatUnits(units []*big.Int) string {
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = u.String()
	}
	return strings.Join(parts, " ")
}

// ParseUnits reads a stream of decimal tokens separated by any amount of
// whitespace. Every token must be an unsigned decimal integer below n.
func ParseUnits(s string, n *big.Int) ([]*big.Int, error) {
	if err := checkModulus(n); err != nil {
		return nil, err
	}
	maxDigits := len(n.String())
	fields := strings.Fields(s)
	if err := utils.CheckLength(len(fields), utils.MaxMessageRunes); err != nil {
		return nil, err
	}
	units := make([]*big.Int, len(fields))
	for i, tok := range fields {
		if !isDecimal(tok) {
			return nil, malformed(i, tok, "not a decimal integer")
		}
		if len(strings.TrimLeft(tok, "0")) > maxDigits {
			return nil, malformed(i, tok, "not in [0, n)")
		}
		v, ok := new(big.Int).SetString(tok, 10)
		if !ok {
			return nil, malformed(i, tok, "not a decimal integer")
		}
		if v.Cmp(n) >= 0 {
			return nil, malformed(i, tok, "not in [0, n)")
		}
		units[i] = v
	}
	return units, nil
}

func isDecimal(tok string) bool {
	if tok == "" {
		return false
	}
	for i := 0; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return false
		}
	}
	return true
}

// EncryptString encrypts text and returns it in wire form.
func EncryptString(text string, pub rsatext.PublicKey) (string, error) {
	units, err := EncryptText(text, pub.E, pub.N)
	if err != nil {
		return "", err
	}
	return FormatUnits(units), nil
}

// DecryptString parses wire form and decrypts it.
func DecryptString(wire string, priv rsatext.PrivateKey) (string, error) {
	units, err := ParseUnits(wire, priv.N)
	if err != nil {
		return "", err
	}
	return DecryptText(units, priv.D, priv.N)
}

func checkModulus(n *big.Int) error {
	if n == nil || n.Sign() <= 0 {
		return fmt.Errorf("%w: modulus must be positive", rsatext.ErrInvalidArgument)
	}
	return nil
}

// parallelThreshold is the unit count below which mapUnits stays on the
// calling goroutine.
const parallelThreshold = 64

// mapUnits applies fn to every unit, splitting long inputs across
// GOMAXPROCS workers. The first error by position is returned.
func mapUnits(units []*big.Int, fn func(*big.Int) (*big.Int, error)) ([]*big.Int, error) {
	out := make([]*big.Int, len(units))
	workers := runtime.GOMAXPROCS(0)
	if len(units) < parallelThreshold || workers < 2 {
		for i, u := range units {
			v, err := fn(u)
			if err != nil {
				return nil, fmt.Errorf("unit %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}

	errs := make([]error, len(units))
	chunk := (len(units) + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < len(units); start += chunk {
		end := min(start+chunk, len(units))
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				out[i], errs[i] = fn(units[i])
				if errs[i] != nil {
					return
				}
			}
		}(start, end)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", i, err)
		}
	}
	return out, nil
}
