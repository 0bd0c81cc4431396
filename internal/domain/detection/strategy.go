// Package detection computes the is_spam signal ingress attaches to
// each archived message, adapted from the teacher's BEC/fraud detection
// strategies to operate on an already-journaled domain.Message instead
// of a provider-fetched Email/User pair.
package detection

import (
	"github.com/openarchive/archive/internal/domain"
)

// Input is everything a strategy may look at: the persisted message
// record plus, when the caller has them, raw MIME headers that do not
// survive into the index document (e.g. Reply-To, Received-SPF,
// Authentication-Results). The ingress pipeline passes no Headers, so
// header-based strategies find nothing to flag on ingest.
type Input struct {
	domain.Message
	Headers         map[string]string
	AttachmentNames []string
}

// Header looks up a raw header case-sensitively as captured from the
// MIME message; returns "" if absent.
func (in Input) Header(name string) string {
	return in.Headers[name]
}

// Strategy analyzes a message and returns a Detection if a threat is
// found, nil otherwise.
//
// This follows the Strategy pattern, allowing each detection technique
// to be independently developed, tested, and enabled without touching
// the others.
type Strategy interface {
	Detect(in Input, context *Context) *domain.Detection
	Name() string
}

// Context provides shared configuration needed by multiple strategies.
type Context struct {
	// InternalDomains are the organization's own domains. Used to
	// distinguish internal vs external senders.
	InternalDomains []string

	// TrustedDomains are legitimate external domains (e.g.
	// "microsoft.com", "paypal.com"), used for typosquatting detection.
	TrustedDomains []string
}

// NewContext builds a Context from configuration.
func NewContext(internalDomains, trustedDomains []string) *Context {
	return &Context{InternalDomains: internalDomains, TrustedDomains: trustedDomains}
}
