package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetector_Analyze(t *testing.T) {
	detector := NewDetector([]string{"company.com"}, []string{"microsoft.com"})

	in := Input{}
	in.From = "John Smith CEO <attacker@evil.com>"
	in.SenderDomain = "evil.com"
	in.Subject = "URGENT wire transfer needed"

	analysis := detector.Analyze(in)

	assert.NotEmpty(t, analysis.DetectedThreats)
	assert.Greater(t, analysis.RiskScore, 0.0)
	assert.NotEqual(t, "none", analysis.RiskLevel)
}

func TestDetector_Analyze_NoSignals(t *testing.T) {
	detector := NewDetector([]string{"company.com"}, []string{"microsoft.com"})

	in := Input{}
	in.From = "Alice <alice@company.com>"
	in.SenderDomain = "company.com"
	in.Subject = "Lunch tomorrow?"

	analysis := detector.Analyze(in)

	assert.Empty(t, analysis.DetectedThreats)
	assert.Equal(t, 0.0, analysis.RiskScore)
	assert.Equal(t, "none", analysis.RiskLevel)
}
