package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigest_IsDeterministicAndContentSensitive(t *testing.T) {
	d1 := Digest([]byte("hello"))
	d2 := Digest([]byte("hello"))
	d3 := Digest([]byte("world"))

	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)
}

func TestSigner_SignAndVerify(t *testing.T) {
	signer := NewSigner("signing-secret")
	data := []byte("ciphertext bytes")

	sig := signer.Sign(data)
	assert.True(t, signer.Verify(data, sig))
}

func TestSigner_VerifyFailsOnTamperedData(t *testing.T) {
	signer := NewSigner("signing-secret")
	data := []byte("ciphertext bytes")
	sig := signer.Sign(data)

	assert.False(t, signer.Verify([]byte("different bytes"), sig))
}

func TestSigner_VerifyFailsWithDifferentSecret(t *testing.T) {
	data := []byte("ciphertext bytes")
	sig := NewSigner("secret-a").Sign(data)

	assert.False(t, NewSigner("secret-b").Verify(data, sig))
}
