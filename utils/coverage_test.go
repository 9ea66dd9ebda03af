package utils

import (
	"errors"
	"math/big"
	"testing"
)

func TestSecureRandomBytes_Zero(t *testing.T) {
	bytes, err := SecureRandomBytes(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(bytes) != 0 {
		t.Error("expected empty slice")
	}
}

func TestSecureRandomBytes_RandError(t *testing.T) {
	old := RandReader
	RandReader = &errorReader{}
	defer func() { RandReader = old }()

	_, err := SecureRandomBytes(32)
	if err == nil {
		t.Error("expected error from rand failure")
	}
}

func TestRandomOddBits_RandError(t *testing.T) {
	old := RandReader
	RandReader = &errorReader{}
	defer func() { RandReader = old }()

	if _, err := RandomOddBits(64); err == nil {
		t.Error("expected error from rand failure")
	}
}

func TestRandomBigIntRange_RandError(t *testing.T) {
	old := RandReader
	RandReader = &errorReader{}
	defer func() { RandReader = old }()

	if _, err := RandomBigIntRange(big.NewInt(2), big.NewInt(1000)); err == nil {
		t.Error("expected error from rand failure")
	}
}

type errorReader struct{}

func (e *errorReader) Read(p []byte) (n int, err error) {
	return 0, errors.New("simulated rand error")
}
