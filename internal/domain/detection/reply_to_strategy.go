package detection

import (
	"fmt"
	"strings"

	"github.com/openarchive/archive/internal/domain"
)

// ReplyToStrategy detects a Reply-To header that silently redirects
// responses to a free email provider.
type ReplyToStrategy struct{}

func NewReplyToStrategy() *ReplyToStrategy {
	return &ReplyToStrategy{}
}

func (s *ReplyToStrategy) Name() string {
	return "Reply-To Mismatch"
}

func (s *ReplyToStrategy) Detect(in Input, context *Context) *domain.Detection {
	senderEmail := strings.ToLower(in.SenderEmail)
	replyTo := domain.CleanAddress(in.Header("Reply-To"))

	if replyTo == "" || replyTo == senderEmail {
		return nil
	}

	senderDomain := in.SenderDomain
	replyToDomain := domain.DomainOf(replyTo)

	freeEmailDomains := []string{"gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "aol.com"}
	isFreemail := false
	for _, freeDomain := range freeEmailDomains {
		if replyToDomain == freeDomain {
			isFreemail = true
			break
		}
	}

	// Suspicious if reply-to is freemail and different from the sender's
	// own domain — a strong phishing/BEC indicator.
	if isFreemail && replyToDomain != senderDomain {
		return &domain.Detection{
			Type:       "REPLY_TO_MISMATCH",
			Confidence: 0.75,
			Evidence: fmt.Sprintf(
				"Sender: %s, Reply-To: %s (free email service, redirects responses)",
				senderEmail, replyTo,
			),
		}
	}

	return nil
}
