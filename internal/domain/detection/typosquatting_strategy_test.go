package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTyposquattingStrategy_Detect(t *testing.T) {
	context := NewContext(
		[]string{"company.com"},
		[]string{"microsoft.com", "paypal.com"},
	)

	tests := []struct {
		name            string
		senderDomain    string
		expectDetection bool
	}{
		{
			name:            "Exact match - no detection",
			senderDomain:    "microsoft.com",
			expectDetection: false,
		},
		{
			name:            "Typosquatting - micros0ft.com",
			senderDomain:    "micros0ft.com",
			expectDetection: true,
		},
		{
			name:            "Transposition microsfot.com - below threshold (84.6% < 85%)",
			senderDomain:    "microsfot.com",
			expectDetection: false,
		},
		{
			name:            "Typosquatting - paypa1.com",
			senderDomain:    "paypa1.com",
			expectDetection: true,
		},
		{
			name:            "Completely different domain",
			senderDomain:    "example.com",
			expectDetection: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{}
			in.SenderDomain = tt.senderDomain
			det := NewTyposquattingStrategy().Detect(in, context)

			if tt.expectDetection {
				assert.NotNil(t, det, "expected typosquatting detection")
				assert.Equal(t, "DOMAIN_TYPOSQUATTING", det.Type)
				assert.Greater(t, det.Confidence, 0.8)
			} else {
				assert.Nil(t, det, "expected no detection")
			}
		})
	}
}
