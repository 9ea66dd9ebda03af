package codec

import (
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"

	rsatext "github.com/BanPerm/RSA-test-implementation"
	"github.com/BanPerm/RSA-test-implementation/keygen"
)

var (
	testKeyOnce sync.Once
	testKey     *rsatext.KeyPair
	testKeyErr  error
)

// key returns a shared 64-bit-prime key pair; its modulus is far above
// U+10FFFF so every code point is encryptable.
func key(t testing.TB) *rsatext.KeyPair {
	t.Helper()
	testKeyOnce.Do(func() {
		testKey, testKeyErr = keygen.GenerateKeyPair(64)
	})
	if testKeyErr != nil {
		t.Fatalf("GenerateKeyPair failed: %v", testKeyErr)
	}
	return testKey
}

func TestTextToUnits(t *testing.T) {
	units := TextToUnits("AB é😀")
	want := []int64{65, 66, 32, 0xE9, 0x1F600}
	if len(units) != len(want) {
		t.Fatalf("got %d units, want %d", len(units), len(want))
	}
	for i, w := range want {
		if units[i].Int64() != w {
			t.Errorf("unit %d = %s, want %d", i, units[i], w)
		}
	}
	if got := TextToUnits(""); len(got) != 0 {
		t.Errorf("empty string gave %d units", len(got))
	}
}

func TestTextToUnits_InvalidUTF8(t *testing.T) {
	units := TextToUnits("a\xffb")
	if len(units) != 3 || units[1].Int64() != 0xFFFD {
		t.Errorf("invalid byte should map to U+FFFD, got %v", units)
	}
}

func TestUnitsToText(t *testing.T) {
	s := "Hello, 世界 \t\n😀"
	got, err := UnitsToText(TextToUnits(s))
	if err != nil {
		t.Fatal(err)
	}
	if got != s {
		t.Errorf("got %q, want %q", got, s)
	}
}

func TestUnitsToText_InvalidCodepoint(t *testing.T) {
	bad := []*big.Int{
		big.NewInt(-1),
		big.NewInt(0xD800),
		big.NewInt(0xDFFF),
		big.NewInt(0x110000),
		new(big.Int).Lsh(big.NewInt(1), 100),
		nil,
	}
	for _, u := range bad {
		_, err := UnitsToText([]*big.Int{big.NewInt(65), u})
		if !errors.Is(err, rsatext.ErrInvalidCodepoint) {
			t.Errorf("UnitsToText(%v) error = %v, want ErrInvalidCodepoint", u, err)
		}
		if !errors.Is(err, rsatext.ErrInvalidArgument) {
			t.Errorf("ErrInvalidCodepoint should wrap ErrInvalidArgument, got %v", err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	kp := key(t)
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"ascii", "The quick brown fox"},
		{"whitespace", " \t\r\n  "},
		{"multibyte", "héllo wörld ÆØÅ"},
		{"cjk", "日本語のテキスト"},
		{"emoji", "😀🎉👍🏽"},
		{"nul", "a\x00b"},
		{"max rune", string(rune(0x10FFFF))},
		{"long", strings.Repeat("abcdefgh ", 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units, err := EncryptText(tt.text, kp.PublicExponent, kp.Modulus)
			if err != nil {
				t.Fatalf("EncryptText failed: %v", err)
			}
			got, err := DecryptText(units, kp.PrivateExponent, kp.Modulus)
			if err != nil {
				t.Fatalf("DecryptText failed: %v", err)
			}
			if got != tt.text {
				t.Errorf("got %q, want %q", got, tt.text)
			}
		})
	}
}

func TestEncryptString_AB(t *testing.T) {
	kp := key(t)
	wire, err := EncryptString("AB", kp.Public())
	if err != nil {
		t.Fatal(err)
	}
	tokens := strings.Split(wire, " ")
	if len(tokens) != 2 {
		t.Fatalf("wire %q has %d tokens, want 2", wire, len(tokens))
	}
	for _, tok := range tokens {
		if !isDecimal(tok) {
			t.Errorf("token %q is not decimal", tok)
		}
	}

	// Each token is exactly the unit transform of the code point.
	for i, cp := range []int64{65, 66} {
		want := new(big.Int).Exp(big.NewInt(cp), kp.PublicExponent, kp.Modulus)
		if tokens[i] != want.String() {
			t.Errorf("token %d = %s, want %s", i, tokens[i], want)
		}
	}

	got, err := DecryptString(wire, kp.Private())
	if err != nil {
		t.Fatal(err)
	}
	if got != "AB" {
		t.Errorf("got %q, want AB", got)
	}
}

func TestEncryptText_EqualCharactersEqualUnits(t *testing.T) {
	kp := key(t)
	units, err := EncryptText("aXa", kp.PublicExponent, kp.Modulus)
	if err != nil {
		t.Fatal(err)
	}
	if units[0].Cmp(units[2]) != 0 {
		t.Error("equal characters should encrypt to equal units")
	}
	if units[0].Cmp(units[1]) == 0 {
		t.Error("different characters encrypted to the same unit")
	}
}

func TestEncryptText_CodepointAboveModulus(t *testing.T) {
	// Textbook key with n = 3233: 'é' fits, U+4E16 does not.
	e, n := big.NewInt(17), big.NewInt(3233)
	if _, err := EncryptText("é", e, n); err != nil {
		t.Errorf("small code point rejected: %v", err)
	}
	if _, err := EncryptText("世", e, n); !errors.Is(err, rsatext.ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}

func TestDecryptString_Whitespace(t *testing.T) {
	kp := key(t)
	units, err := EncryptText("hi!", kp.PublicExponent, kp.Modulus)
	if err != nil {
		t.Fatal(err)
	}
	wire := "\n\t " + units[0].String() + "   \r\n" + units[1].String() + "\t" + units[2].String() + "\n"
	got, err := DecryptString(wire, kp.Private())
	if err != nil {
		t.Fatal(err)
	}
	if got != "hi!" {
		t.Errorf("got %q, want hi!", got)
	}

	got, err = DecryptString("  \n ", kp.Private())
	if err != nil || got != "" {
		t.Errorf("blank input gave %q, %v", got, err)
	}
}

func TestParseUnits_Malformed(t *testing.T) {
	n := big.NewInt(3233)
	tests := []struct {
		input string
		index int
	}{
		{"12 abc 5", 1},
		{"-5", 0},
		{"+5", 0},
		{"1 2 3.0", 2},
		{"0x10", 0},
		{"3233", 0},
		{"1 99999999999999999999999999999", 1},
		{"1,2", 0},
	}
	for _, tt := range tests {
		_, err := ParseUnits(tt.input, n)
		if !errors.Is(err, rsatext.ErrMalformedCiphertext) {
			t.Errorf("ParseUnits(%q) error = %v, want ErrMalformedCiphertext", tt.input, err)
			continue
		}
		var ce *CiphertextError
		if !errors.As(err, &ce) {
			t.Errorf("ParseUnits(%q) error is not a *CiphertextError", tt.input)
			continue
		}
		if ce.Index != tt.index {
			t.Errorf("ParseUnits(%q) index = %d, want %d", tt.input, ce.Index, tt.index)
		}
	}
}

func TestParseUnits_LeadingZeros(t *testing.T) {
	units, err := ParseUnits("0000000000000000000000000042 0", big.NewInt(3233))
	if err != nil {
		t.Fatal(err)
	}
	if units[0].Int64() != 42 || units[1].Sign() != 0 {
		t.Errorf("got %v", units)
	}
}

func TestCiphertextError_TruncatesToken(t *testing.T) {
	long := strings.Repeat("x", 100)
	_, err := ParseUnits(long, big.NewInt(3233))
	var ce *CiphertextError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v", err)
	}
	if len(ce.Token) > 40 {
		t.Errorf("token not shortened: %d bytes", len(ce.Token))
	}
	if !strings.Contains(err.Error(), "unit 0") {
		t.Errorf("message lacks position: %s", err)
	}
}

func TestDecryptText_OutOfRange(t *testing.T) {
	kp := key(t)
	units := []*big.Int{big.NewInt(1), new(big.Int).Set(kp.Modulus)}
	_, err := DecryptText(units, kp.PrivateExponent, kp.Modulus)
	var ce *CiphertextError
	if !errors.As(err, &ce) || ce.Index != 1 {
		t.Errorf("error = %v, want CiphertextError at 1", err)
	}
	if _, err := DecryptText([]*big.Int{big.NewInt(-1)}, kp.PrivateExponent, kp.Modulus); !errors.Is(err, rsatext.ErrMalformedCiphertext) {
		t.Errorf("negative unit: error = %v", err)
	}
}

func TestDecryptText_WrongKey(t *testing.T) {
	kp := key(t)
	other, err := keygen.GenerateKeyPair(64)
	if err != nil {
		t.Fatal(err)
	}
	wire, err := EncryptString(strings.Repeat("secret", 10), kp.Public())
	if err != nil {
		t.Fatal(err)
	}
	// Under another key the tokens are either out of range or decrypt to
	// integers far above U+10FFFF.
	if _, err := DecryptString(wire, other.Private()); err == nil {
		t.Error("decrypting with the wrong key should fail")
	}
}

func TestInvalidModulus(t *testing.T) {
	for _, n := range []*big.Int{nil, big.NewInt(0), big.NewInt(-3)} {
		if _, err := EncryptText("a", big.NewInt(3), n); !errors.Is(err, rsatext.ErrInvalidArgument) {
			t.Errorf("EncryptText n=%v: %v", n, err)
		}
		if _, err := DecryptText(nil, big.NewInt(3), n); !errors.Is(err, rsatext.ErrInvalidArgument) {
			t.Errorf("DecryptText n=%v: %v", n, err)
		}
		if _, err := ParseUnits("1", n); !errors.Is(err, rsatext.ErrInvalidArgument) {
			t.Errorf("ParseUnits n=%v: %v", n, err)
		}
	}
}

func TestFormatUnits(t *testing.T) {
	if got := FormatUnits(nil); got != "" {
		t.Errorf("FormatUnits(nil) = %q", got)
	}
	got := FormatUnits([]*big.Int{big.NewInt(7), big.NewInt(0), big.NewInt(123)})
	if got != "7 0 123" {
		t.Errorf("FormatUnits = %q", got)
	}
}

func TestMapUnits_Parallel(t *testing.T) {
	units := make([]*big.Int, 1000)
	for i := range units {
		units[i] = big.NewInt(int64(i))
	}
	out, err := mapUnits(units, func(x *big.Int) (*big.Int, error) {
		return new(big.Int).Add(x, big.NewInt(1)), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out {
		if v.Int64() != int64(i+1) {
			t.Fatalf("out[%d] = %s", i, v)
		}
	}

	boom := errors.New("boom")
	_, err = mapUnits(units, func(x *big.Int) (*big.Int, error) {
		if x.Int64() >= 700 {
			return nil, boom
		}
		return x, nil
	})
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "unit 700") {
		t.Errorf("error = %v, want first failure at unit 700", err)
	}
}
