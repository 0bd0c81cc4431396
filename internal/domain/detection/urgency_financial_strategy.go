package detection

import (
	"fmt"
	"math"
	"strings"

	"github.com/openarchive/archive/internal/domain"
)

// UrgencyFinancialStrategy detects the combination of urgency language
// and financial/wire-transfer language in the subject and extracted
// body text.
type UrgencyFinancialStrategy struct{}

func NewUrgencyFinancialStrategy() *UrgencyFinancialStrategy {
	return &UrgencyFinancialStrategy{}
}

func (s *UrgencyFinancialStrategy) Name() string {
	return "Urgency + Financial Keywords"
}

func (s *UrgencyFinancialStrategy) Detect(in Input, context *Context) *domain.Detection {
	text := strings.ToLower(in.Subject + " " + in.OCRText)

	urgencyKeywords := []string{
		"urgent", "immediately", "asap", "right away", "time sensitive",
		"today", "end of day", "eod", "quick", "need this now", "hurry",
	}

	financialKeywords := []string{
		"wire transfer", "payment", "invoice", "bank account", "routing number",
		"swift", "ach", "wire", "fund", "transfer", "pay", "urgent payment",
		"gift card", "itunes", "google play", "prepaid card",
	}

	authorityKeywords := []string{
		"ceo", "president", "director", "approved", "authorized", "confidential",
		"do not discuss", "between us", "sensitive", "private",
	}

	urgencyCount := countKeywords(text, urgencyKeywords)
	financialCount := countKeywords(text, financialKeywords)
	authorityCount := countKeywords(text, authorityKeywords)

	// Weighted scoring: financial keywords weighted highest.
	score := (float64(urgencyCount) * 0.3) + (float64(financialCount) * 0.5) + (float64(authorityCount) * 0.2)

	if score > 1.5 {
		confidence := math.Min(0.70+(score-1.5)*0.1, 0.95)
		return &domain.Detection{
			Type:       "URGENCY_FINANCIAL_LANGUAGE",
			Confidence: confidence,
			Evidence: fmt.Sprintf(
				"High-risk language detected (score: %.2f): %d urgency, %d financial, %d authority keywords",
				score, urgencyCount, financialCount, authorityCount,
			),
		}
	}

	return nil
}

// countKeywords counts how many keywords from the list appear in text.
func countKeywords(text string, keywords []string) int {
	count := 0
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			count++
		}
	}
	return count
}
