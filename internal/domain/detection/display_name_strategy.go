package detection

import (
	"fmt"
	"strings"

	"github.com/openarchive/archive/internal/domain"
)

// DisplayNameStrategy detects CEO-fraud via display-name impersonation.
type DisplayNameStrategy struct{}

func NewDisplayNameStrategy() *DisplayNameStrategy {
	return &DisplayNameStrategy{}
}

func (s *DisplayNameStrategy) Name() string {
	return "Display Name Mismatch"
}

// Detect checks whether the From header's display name implies
// authority while the sender's domain is external.
func (s *DisplayNameStrategy) Detect(in Input, context *Context) *domain.Detection {
	displayName := strings.ToLower(in.From)
	senderDomain := in.SenderDomain

	execTitles := []string{"ceo", "cfo", "president", "director", "chief", "vp", "vice president"}
	hasExecTitle := containsAny(displayName, execTitles)

	isExternal := !isInternalDomain(senderDomain, context.InternalDomains)

	if hasExecTitle && isExternal {
		return &domain.Detection{
			Type:       "DISPLAY_NAME_MISMATCH",
			Confidence: 0.85,
			Evidence: fmt.Sprintf(
				"From header '%s' contains an executive title but sender domain '%s' is external",
				in.From, senderDomain,
			),
		}
	}

	return nil
}
