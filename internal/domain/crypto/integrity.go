package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the hex-encoded SHA-256 of data, used as a message's
// content digest over the stored ciphertext.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Signer produces and verifies HMAC-SHA256 signatures over ciphertext
// under a process-wide signing secret.
type Signer struct {
	key []byte
}

// NewSigner builds a Signer from the configured signing secret.
func NewSigner(secret string) *Signer {
	return &Signer{key: []byte(secret)}
}

// Sign returns the hex-encoded HMAC-SHA256 of data.
func (s *Signer) Sign(data []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is a valid signature over data, using a
// constant-time comparison to avoid leaking timing information.
func (s *Signer) Verify(data []byte, sig string) bool {
	expected := s.Sign(data)
	return hmac.Equal([]byte(expected), []byte(sig))
}
