package detection

import (
	"fmt"
	"strings"

	"github.com/openarchive/archive/internal/domain"
)

// AuthFailuresStrategy detects email authentication failures. SPF,
// DKIM, and DMARC verify that a message was legitimately sent from its
// claimed domain; when these checks fail, the journal entry is a
// candidate for spoofing.
type AuthFailuresStrategy struct{}

func NewAuthFailuresStrategy() *AuthFailuresStrategy {
	return &AuthFailuresStrategy{}
}

func (s *AuthFailuresStrategy) Name() string {
	return "Authentication Failures"
}

// Detect inspects the raw Received-SPF and Authentication-Results
// headers in in.Headers for SPF/DKIM/DMARC failures.
func (s *AuthFailuresStrategy) Detect(in Input, context *Context) *domain.Detection {
	var failures []string

	if spf := in.Header("Received-SPF"); spf != "" {
		if strings.Contains(strings.ToLower(spf), "fail") {
			failures = append(failures, "SPF_FAIL")
		}
	}

	if authResults := in.Header("Authentication-Results"); authResults != "" {
		lower := strings.ToLower(authResults)
		if strings.Contains(lower, "dkim=fail") {
			failures = append(failures, "DKIM_FAIL")
		}
		if strings.Contains(lower, "dmarc=fail") {
			failures = append(failures, "DMARC_FAIL")
		}
	}

	// Multiple failures indicate spoofing; legitimate misconfigurations
	// usually affect only one protocol.
	if len(failures) >= 2 {
		return &domain.Detection{
			Type:       "AUTH_FAILURES",
			Confidence: 0.80,
			Evidence:   fmt.Sprintf("Email authentication failures: %s", strings.Join(failures, ", ")),
		}
	}

	return nil
}
