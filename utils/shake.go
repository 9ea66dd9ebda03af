package utils

import (
	"encoding/binary"
	"math/big"

	"golang.org/x/crypto/sha3"
)

// SHA3256 computes the SHA3-256 cryptographic hash of the input.
// It returns a 32-byte hash.
func SHA3256(input []byte) []byte {
	h := sha3.New256()
	h.Write(input)
	return h.Sum(nil)
}

// HashWithDomain computes a domain-separated SHA3-256 hash.
// It prefixes the data with the length of the domain string and the domain string itself.
// Panics if domain is longer than 255 bytes.
func HashWithDomain(domain string, data []byte) []byte {
	domainBytes := []byte(domain)
	if len(domainBytes) > 255 {
		panic("domain string must be at most 255 bytes")
	}
	h := sha3.New256()
	h.Write([]byte{byte(len(domainBytes))})
	h.Write(domainBytes)
	h.Write(data)
	return h.Sum(nil)
}

// EncodeIntegers serializes non-negative integers as length-prefixed
// big-endian magnitudes (4-byte little-endian length, then the bytes).
// The prefix keeps (12, 3) and (1, 23) from encoding the same way.
// A nil integer encodes like zero.
func EncodeIntegers(values ...*big.Int) []byte {
	var out []byte
	lenBytes := make([]byte, 4)
	for _, v := range values {
		var b []byte
		if v != nil {
			b = v.Bytes()
		}
		binary.LittleEndian.PutUint32(lenBytes, uint32(len(b)))
		out = append(out, lenBytes...)
		out = append(out, b...)
	}
	return out
}
