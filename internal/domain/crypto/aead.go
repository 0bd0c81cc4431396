// Package crypto implements the per-message and at-rest cryptographic
// primitives: AEAD body encryption, master-key wrapping, and the
// HMAC/SHA-256 integrity signatures used throughout ingestion, retrieval,
// and the audit chain.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// KeySize is the per-message AEAD key length in bytes (256 bits).
const KeySize = 32

// GenerateKey returns a fresh random 256-bit key, URL-safe base64
// encoded for storage alongside the message record.
func GenerateKey() (string, error) {
	raw := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generate message key: %w", err)
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// encodeRawKey is the inverse of the decode step in aeadFor, used where
// a key already exists as raw bytes (the derived master key) rather than
// being generated fresh by GenerateKey.
func encodeRawKey(raw []byte) string {
	return base64.URLEncoding.EncodeToString(raw)
}

func aeadFor(encodedKey string) (cipher.AEAD, error) {
	raw, err := base64.URLEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return gcm, nil
}

// Encrypt seals plaintext under the per-message key. The output is
// self-contained: nonce prepended to the ciphertext, so callers never
// need to persist the nonce separately.
func Encrypt(encodedKey string, plaintext []byte) ([]byte, error) {
	gcm, err := aeadFor(encodedKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, sealed...), nil
}

// Decrypt opens a blob previously produced by Encrypt under the same
// key. Returns an error if the key is wrong or the data was tampered
// with (authentication failure).
func Decrypt(encodedKey string, blob []byte) ([]byte, error) {
	gcm, err := aeadFor(encodedKey)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(blob) < nonceSize {
		return nil, fmt.Errorf("decrypt: ciphertext shorter than nonce")
	}
	nonce, sealed := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: authentication failed: %w", err)
	}
	return plaintext, nil
}
