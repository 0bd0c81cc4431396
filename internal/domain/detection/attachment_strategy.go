package detection

import (
	"fmt"
	"strings"

	"github.com/openarchive/archive/internal/domain"
)

// AttachmentStrategy detects suspicious attachment types — the single
// most common malware delivery method.
type AttachmentStrategy struct{}

func NewAttachmentStrategy() *AttachmentStrategy {
	return &AttachmentStrategy{}
}

func (s *AttachmentStrategy) Name() string {
	return "Suspicious Attachments"
}

func (s *AttachmentStrategy) Detect(in Input, context *Context) *domain.Detection {
	if !in.HasAttachments {
		return nil
	}

	// HIGH RISK: executables and scripts can run arbitrary code.
	highRiskExtensions := []string{
		".exe", ".scr", ".bat", ".cmd", ".com", ".pif",
		".vbs", ".js", ".jar", ".msi", ".app",
	}

	// MEDIUM RISK: office documents with macro support can download and
	// execute malware.
	mediumRiskExtensions := []string{
		".doc", ".xls", ".xlsm", ".docm", ".pptm",
	}

	for _, name := range in.AttachmentNames {
		filename := strings.ToLower(name)

		for _, ext := range highRiskExtensions {
			if strings.HasSuffix(filename, ext) {
				return &domain.Detection{
					Type:       "HIGH_RISK_ATTACHMENT",
					Confidence: 0.90,
					Evidence:   fmt.Sprintf("High-risk attachment type: %s", name),
				}
			}
		}

		// Double-extension trick (e.g. invoice.pdf.exe) — legitimate
		// files rarely carry more than one extension.
		if strings.Count(filename, ".") > 1 {
			return &domain.Detection{
				Type:       "SUSPICIOUS_ATTACHMENT_NAME",
				Confidence: 0.85,
				Evidence:   fmt.Sprintf("Suspicious attachment name (double extension): %s", name),
			}
		}

		for _, ext := range mediumRiskExtensions {
			if strings.HasSuffix(filename, ext) && hasUrgencyLanguage(in) {
				return &domain.Detection{
					Type:       "MEDIUM_RISK_ATTACHMENT_WITH_URGENCY",
					Confidence: 0.70,
					Evidence:   fmt.Sprintf("Medium-risk attachment + urgent language: %s", name),
				}
			}
		}
	}

	return nil
}
