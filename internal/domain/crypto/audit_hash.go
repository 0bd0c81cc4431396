package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// AuditHash computes SHA-256 of the UTF-8 concatenation
// `previous ‖ actor ‖ action ‖ canonicalDetails ‖ orgID`, the chain link
// function every tenant's audit log uses. canonicalDetails must already
// be the canonical JSON form (sorted keys, no whitespace) produced by
// domain.Canonical — this package does not import domain to avoid a
// cycle, so callers own canonicalization.
func AuditHash(previous, actor, action, canonicalDetails string, orgID int64) string {
	input := previous + actor + action + canonicalDetails + fmt.Sprintf("%d", orgID)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
