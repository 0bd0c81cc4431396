package detection

import (
	"math"

	"github.com/openarchive/archive/internal/domain"
)

// Detector runs a fixed set of pluggable strategies over a message and
// aggregates their signals into a single risk score.
//
// This design follows the Strategy pattern, providing modularity
// (each detection type is independently developed and tested),
// extensibility (new strategies can be added without touching existing
// ones), and testability (strategies can be tested in isolation).
type Detector struct {
	strategies []Strategy
	context    *Context
}

// NewDetector creates a detector with all standard detection strategies,
// configured with an organization's internal and trusted domains.
func NewDetector(internalDomains, trustedDomains []string) *Detector {
	context := NewContext(internalDomains, trustedDomains)

	strategies := []Strategy{
		NewDisplayNameStrategy(),
		NewTyposquattingStrategy(),
		NewAuthFailuresStrategy(),
		NewUrgencyFinancialStrategy(),
		NewReplyToStrategy(),
		NewAttachmentStrategy(),
		NewBECRoleStrategy(),
	}

	return &Detector{strategies: strategies, context: context}
}

// Analyze runs every strategy against in and returns the aggregated
// spam analysis.
func (d *Detector) Analyze(in Input) domain.SpamAnalysis {
	detections := make([]domain.Detection, 0)
	for _, strategy := range d.strategies {
		if det := strategy.Detect(in, d.context); det != nil {
			detections = append(detections, *det)
		}
	}

	riskScore := d.calculateRiskScore(detections)

	return domain.SpamAnalysis{
		MessageID:       in.ID,
		RiskScore:       riskScore,
		RiskLevel:       domain.RiskLevel(riskScore),
		DetectedThreats: detections,
	}
}

// calculateRiskScore aggregates multiple detection signals into a
// single score, weighted by detection type and capped at 1.0.
func (d *Detector) calculateRiskScore(detections []domain.Detection) float64 {
	if len(detections) == 0 {
		return 0.0
	}

	// Production: this table should live somewhere operators can tune
	// without a redeploy.
	weights := map[string]float64{
		"DOMAIN_TYPOSQUATTING":                1.5,
		"DISPLAY_NAME_MISMATCH":               1.3,
		"AUTH_FAILURES":                       1.2,
		"HIGH_RISK_ATTACHMENT":                1.5,
		"SUSPICIOUS_ATTACHMENT_NAME":          1.3,
		"URGENCY_FINANCIAL_LANGUAGE":          1.0,
		"REPLY_TO_MISMATCH":                   1.1,
		"MEDIUM_RISK_ATTACHMENT_WITH_URGENCY": 1.0,
		"BEC_CSUITE_TARGETING":                1.6,
		"BEC_FINANCE_TARGETING":               1.5,
		"BEC_HR_PAYROLL_SCAM":                 1.4,
		"BEC_HIGH_VALUE_TARGET":               1.2,
	}

	maxScore := 0.0
	for _, detection := range detections {
		weight := weights[detection.Type]
		if weight == 0 {
			weight = 1.0
		}
		score := detection.Confidence * weight
		if score > maxScore {
			maxScore = score
		}
	}

	return math.Min(maxScore, 1.0)
}
