package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("terminal output")
	b := Fingerprint("terminal output")
	c := Fingerprint("terminal output ")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestHasherAlgorithms(t *testing.T) {
	sha := NewHasher(SHA256)
	assert.Equal(t, sha.HashString("x"), sha.Hash([]byte("x")))
	assert.NotEmpty(t, DefaultHasher().HashString("x"))
}
