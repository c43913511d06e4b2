// Package hash provides content fingerprinting for output deduplication.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Algorithm represents the hashing algorithm to use.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
)

// Hasher computes content fingerprints.
type Hasher struct {
	algorithm Algorithm
}

// NewHasher creates a new hasher with the specified algorithm.
func NewHasher(algorithm Algorithm) *Hasher {
	return &Hasher{algorithm: algorithm}
}

// DefaultHasher returns a hasher with the default algorithm.
func DefaultHasher() *Hasher {
	return NewHasher(SHA256)
}

// Hash computes a hash of the input data.
func (h *Hasher) Hash(data []byte) string {
	switch h.algorithm {
	case SHA256:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	default:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	}
}

// HashString computes a hash of a string.
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// Fingerprint computes a fingerprint of normalized terminal output using the
// default algorithm. Two screens with identical visible content produce the
// same fingerprint.
func Fingerprint(s string) string {
	return DefaultHasher().HashString(s)
}
