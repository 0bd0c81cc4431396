// Package domain holds the core data model: organizations, archived
// messages, audit entries, legal holds, cases, and retention policies.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a tenant. Its owned domains drive routing (§4.5).
type Organization struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Domains   []string  `json:"domains"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// OwnsDomain reports whether d is one of the organization's domains.
func (o Organization) OwnsDomain(d string) bool {
	for _, owned := range o.Domains {
		if owned == d {
			return true
		}
	}
	return false
}

// FilterCriteria is the small predicate language legal holds use to
// auto-populate their item set and to protect messages that were never
// explicitly added.
type FilterCriteria struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	Q    string `json:"q,omitempty"`
}

// Empty reports whether the criteria carries no predicate at all.
func (c FilterCriteria) Empty() bool {
	return c.From == "" && c.To == "" && c.Q == ""
}

// Message is the index document described in the data model. It is the
// unit the ingress pipeline writes, retrieval reads, and retention
// disposes of.
type Message struct {
	ID uuid.UUID `json:"id"`

	// Key is the per-message AEAD key, generated at the edge and carried
	// alongside the record so retrieval can decrypt without a KMS round
	// trip.
	Key string `json:"key"`

	MessageID  string   `json:"message_id"`
	InReplyTo  string   `json:"in_reply_to,omitempty"`
	References []string `json:"references,omitempty"`

	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Date    string `json:"date"`

	// DateTimestamp is seconds since epoch, or 0 if the Date header could
	// not be parsed. 0 is a sentinel, never a legitimate value.
	DateTimestamp int64 `json:"date_timestamp"`

	EnvelopeFrom string `json:"envelope_from"`
	EnvelopeRcpt string `json:"envelope_rcpt"`

	SenderEmail      string   `json:"sender_email"`
	RecipientEmails  []string `json:"recipient_emails"`
	SenderDomain     string   `json:"sender_domain"`
	RecipientDomains []string `json:"recipient_domains"`
	Domains          []string `json:"domains"`

	// OrgIDs is the owning set — a list, never a scalar.
	OrgIDs []int64 `json:"org_id"`

	SHA256    string `json:"sha256"`
	Signature string `json:"signature"`

	HasAttachments bool     `json:"has_attachments"`
	CASRefs        []string `json:"cas_refs,omitempty"`
	OCRText        string   `json:"ocr_text,omitempty"`

	IsSpam bool `json:"is_spam"`

	Size int64 `json:"size"`

	IngestedAt time.Time `json:"ingested_at"`
}

// OwnedBy reports whether orgID is in the message's owning set.
func (m Message) OwnedBy(orgID int64) bool {
	for _, id := range m.OrgIDs {
		if id == orgID {
			return true
		}
	}
	return false
}

// CASBlob is a content-addressed attachment payload, keyed by the
// hex-encoded SHA-256 of its decoded bytes. Immutable and implicitly
// reference-counted by the messages that cite it.
type CASBlob struct {
	Hash      string    `json:"hash"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// RootHash is the sentinel previous-hash for the first entry of every
// tenant's audit chain.
const RootHash = "ROOT_HASH"

// AuditEntry is one link in a per-tenant hash chain.
type AuditEntry struct {
	ID           int64          `json:"id"`
	OrgID        int64          `json:"org_id"`
	Actor        string         `json:"actor"`
	Action       string         `json:"action"`
	Details      map[string]any `json:"details"`
	PreviousHash string         `json:"previous_hash"`
	CurrentHash  string         `json:"current_hash"`
	CreatedAt    time.Time      `json:"created_at"`
}

// LegalHold is an explicit or criteria-based preservation order.
type LegalHold struct {
	ID       int64          `json:"id"`
	PublicID uuid.UUID      `json:"public_id"`
	OrgID    int64          `json:"org_id"`
	Name     string         `json:"name"`
	Reason   string         `json:"reason,omitempty"`
	Criteria FilterCriteria `json:"filter_criteria"`
	Active   bool           `json:"active"`

	CreatedAt time.Time `json:"created_at"`
}

// Case is an organization-scoped folder of message ids used by export.
type Case struct {
	ID          int64     `json:"id"`
	PublicID    uuid.UUID `json:"public_id"`
	OrgID       int64     `json:"org_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// CaseItem is one message attached to a case, with per-item review
// metadata.
type CaseItem struct {
	CaseID       int64     `json:"case_id"`
	MessageID    uuid.UUID `json:"message_id"`
	Tags         []string  `json:"tags,omitempty"`
	ReviewStatus string    `json:"review_status"`
	Assignee     string    `json:"assignee,omitempty"`
	AddedAt      time.Time `json:"added_at"`
}

// RetentionPolicy governs automatic disposal. OrgID nil means the policy
// is global.
type RetentionPolicy struct {
	ID         int64    `json:"id"`
	OrgID      *int64   `json:"org_id,omitempty"`
	Domains    []string `json:"domains"`
	RetainDays int      `json:"retain_days"`
	Action     string   `json:"action"`
}

// RiskLevel converts a spam/threat score into a categorical level,
// mirroring the thresholds a human reviewer would apply to a BEC score.
func RiskLevel(score float64) string {
	switch {
	case score >= 0.85:
		return "critical"
	case score >= 0.70:
		return "high"
	case score >= 0.50:
		return "medium"
	case score >= 0.30:
		return "low"
	default:
		return "none"
	}
}

// Detection is a single threat-scoring signal raised against a message.
type Detection struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence"`
}

// SpamAnalysis is the aggregate result of running the detection
// strategies over one message.
type SpamAnalysis struct {
	MessageID       uuid.UUID   `json:"message_id"`
	RiskScore       float64     `json:"risk_score"`
	RiskLevel       string      `json:"risk_level"`
	DetectedThreats []Detection `json:"detected_threats"`
}
