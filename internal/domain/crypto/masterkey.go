package crypto

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// masterKeySalt is fixed by design: every deployment must derive the
// same key from the same secret, so the salt cannot be random per
// process. See Design Notes on canonical hashing for the same rationale
// applied to audit entries.
const masterKeySalt = "openarchive-master-key-salt-v1"

const masterKeyIterations = 100_000

// DeriveMasterKey derives the process-wide at-rest wrapping key from a
// configured secret via PBKDF2-HMAC-SHA256. Called once at startup; the
// result is held by BlobCipher for the life of the process.
func DeriveMasterKey(secret string) []byte {
	return pbkdf2.Key([]byte(secret), []byte(masterKeySalt), masterKeyIterations, KeySize, sha256.New)
}

// BlobCipher wraps ciphertext with the master key before it reaches the
// blob store, and unwraps it on read. This is a second encryption layer
// on top of the per-message AEAD layer in aead.go — the blob store
// adapter is the only thing that ever sees it (§4.1).
type BlobCipher struct {
	key []byte
}

// NewBlobCipher builds a BlobCipher from a raw 32-byte key, typically
// the output of DeriveMasterKey.
func NewBlobCipher(key []byte) (*BlobCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", KeySize, len(key))
	}
	return &BlobCipher{key: key}, nil
}

func (c *BlobCipher) encodedKey() string {
	return encodeRawKey(c.key)
}

// Wrap encrypts data under the master key for at-rest storage.
func (c *BlobCipher) Wrap(data []byte) ([]byte, error) {
	return Encrypt(c.encodedKey(), data)
}

// Unwrap reverses Wrap.
func (c *BlobCipher) Unwrap(data []byte) ([]byte, error) {
	return Decrypt(c.encodedKey(), data)
}
