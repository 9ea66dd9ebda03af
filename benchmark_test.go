package rsatext_test

import (
	"strings"
	"testing"

	"github.com/BanPerm/RSA-test-implementation/codec"
	"github.com/BanPerm/RSA-test-implementation/keygen"
	"github.com/BanPerm/RSA-test-implementation/primes"
)

// =============================================================================
// Prime and key generation
// =============================================================================

func BenchmarkGeneratePrime_512(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := primes.GeneratePrime(512); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGeneratePrime_1024(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := primes.GeneratePrime(1024); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGenerateKeyPair_512(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := keygen.GenerateKeyPair(512); err != nil {
			b.Fatal(err)
		}
	}
}

// =============================================================================
// Text encryption (1024-bit primes)
// =============================================================================

var benchMessage = strings.Repeat("Lorem ipsum dolor sit amet. ", 8)

func BenchmarkEncryptString_1024(b *testing.B) {
	kp, err := keygen.GenerateKeyPair(1024)
	if err != nil {
		b.Fatal(err)
	}
	pub := kp.Public()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := codec.EncryptString(benchMessage, pub); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecryptString_1024(b *testing.B) {
	kp, err := keygen.GenerateKeyPair(1024)
	if err != nil {
		b.Fatal(err)
	}
	wire, err := codec.EncryptString(benchMessage, kp.Public())
	if err != nil {
		b.Fatal(err)
	}
	priv := kp.Private()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := codec.DecryptString(wire, priv); err != nil {
			b.Fatal(err)
		}
	}
}
