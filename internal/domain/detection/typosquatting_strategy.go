package detection

import (
	"fmt"

	"github.com/openarchive/archive/internal/domain"
)

// TyposquattingStrategy detects domain typosquatting attacks.
type TyposquattingStrategy struct{}

func NewTyposquattingStrategy() *TyposquattingStrategy {
	return &TyposquattingStrategy{}
}

func (s *TyposquattingStrategy) Name() string {
	return "Domain Typosquatting"
}

// Detect checks whether the sender domain is suspiciously similar to a
// trusted domain.
func (s *TyposquattingStrategy) Detect(in Input, context *Context) *domain.Detection {
	senderDomain := in.SenderDomain

	for _, trustedDomain := range context.TrustedDomains {
		if senderDomain == trustedDomain {
			continue
		}

		distance := levenshteinDistance(senderDomain, trustedDomain)
		maxLen := float64(max(len(senderDomain), len(trustedDomain)))
		if maxLen == 0 {
			continue
		}
		similarity := (1.0 - float64(distance)/maxLen) * 100

		// Flag if very similar but not identical (85% threshold), tuned
		// to catch typosquats without false positives.
		if similarity > 85 && similarity < 100 {
			return &domain.Detection{
				Type:       "DOMAIN_TYPOSQUATTING",
				Confidence: 0.90,
				Evidence: fmt.Sprintf(
					"Sender domain '%s' is %.1f%% similar to trusted domain '%s' (potential typosquatting)",
					senderDomain, similarity, trustedDomain,
				),
			}
		}
	}

	return nil
}
