// Package application holds Core's orchestration services: ingress,
// retrieval, audit, legal hold, retention, and export. Each service is
// constructed with its port dependencies injected, mirroring the
// teacher's FraudDetectionService constructor-DI style.
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openarchive/archive/internal/apperr"
	"github.com/openarchive/archive/internal/domain"
	"github.com/openarchive/archive/internal/domain/crypto"
	"github.com/openarchive/archive/internal/domain/detection"
	"github.com/openarchive/archive/internal/domain/tenant"
	"github.com/openarchive/archive/internal/ports"
)

// ingestMetadata is the agent-supplied document shape described in §4.2/
// §6 — the wire format internal/adapters/smtp.IngestMetadata marshals to.
type ingestMetadata struct {
	From            string   `json:"from"`
	To              string   `json:"to"`
	Subject         string   `json:"subject"`
	Date            string   `json:"date"`
	MessageID       string   `json:"message_id"`
	InReplyTo       []string `json:"in_reply_to"`
	References      []string `json:"references"`
	EnvelopeFrom    string   `json:"envelope_from"`
	EnvelopeRcpt    []string `json:"envelope_rcpt"`
	Size            int64    `json:"size"`
	HasAttachments  bool     `json:"has_attachments"`
	CASRefs         []string `json:"cas_refs"`
	AttachmentNames []string `json:"attachment_names"`
	OCRText         string   `json:"ocr_text"`
}

// SyncItem is one entry of an agent sync batch: the buffered blob key,
// its per-message AEAD key, and its ingest metadata.
type SyncItem struct {
	ID       string
	Key      string
	Metadata json.RawMessage
	Blob     []byte
}

// IngressService implements the ingress pipeline (C6): blob-then-index
// ordering, tenant resolution with default-org fallback, and inline
// threat scoring.
type IngressService struct {
	blobs    ports.BlobStore
	index    ports.SearchIndex
	resolver *tenant.Resolver
	detector *detection.Detector
	signer   *crypto.Signer
	log      *zap.Logger
}

// NewIngressService wires the ingress pipeline's dependencies.
func NewIngressService(blobs ports.BlobStore, index ports.SearchIndex, resolver *tenant.Resolver, detector *detection.Detector, signer *crypto.Signer, log *zap.Logger) *IngressService {
	return &IngressService{blobs: blobs, index: index, resolver: resolver, detector: detector, signer: signer, log: log}
}

// SyncBatch processes an agent batch. Items that fail blob upload are
// skipped; partial success is allowed (§4.3). Returns the count of
// items successfully indexed.
func (s *IngressService) SyncBatch(ctx context.Context, items []SyncItem) (int, error) {
	processed := 0
	for _, item := range items {
		if err := s.syncOne(ctx, item); err != nil {
			s.log.Warn("sync item failed", zap.String("id", item.ID), zap.Error(err))
			continue
		}
		processed++
	}
	return processed, nil
}

func (s *IngressService) syncOne(ctx context.Context, item SyncItem) error {
	var meta ingestMetadata
	if err := json.Unmarshal(item.Metadata, &meta); err != nil {
		return fmt.Errorf("unmarshal metadata: %w", err)
	}

	if err := s.blobs.Put(ctx, item.ID+".enc", item.Blob); err != nil {
		return fmt.Errorf("put blob: %w", err)
	}

	id, err := uuid.Parse(item.ID)
	if err != nil {
		id = uuid.New()
	}

	envelopeRcpt := strings.Join(meta.EnvelopeRcpt, ", ")
	inReplyTo := ""
	if len(meta.InReplyTo) > 0 {
		inReplyTo = meta.InReplyTo[0]
	}

	senderEmail := domain.CleanAddress(meta.From)
	if env := domain.CleanAddress(meta.EnvelopeFrom); env != "" {
		senderEmail = env
	}

	recipients := domain.CleanAddressList(meta.To)
	for _, r := range meta.EnvelopeRcpt {
		if e := domain.CleanAddress(r); e != "" {
			recipients = append(recipients, e)
		}
	}
	recipients = dedupeStrings(recipients)

	senderDomain := domain.DomainOf(domain.CleanAddress(meta.From))
	if env := domain.DomainOf(meta.EnvelopeFrom); env != "" {
		senderDomain = env
	}
	recipientDomains := domain.UnionDomains(domain.DomainsOf(domain.CleanAddressList(meta.To)), domain.DomainsOf(meta.EnvelopeRcpt))
	allDomains := domain.UnionDomains([]string{senderDomain}, recipientDomains)

	orgIDs, err := s.resolver.Resolve(ctx, allDomains)
	if err != nil {
		return fmt.Errorf("resolve tenant: %w", err)
	}

	msg := domain.Message{
		ID:               id,
		Key:              item.Key,
		MessageID:        meta.MessageID,
		InReplyTo:        inReplyTo,
		References:       meta.References,
		From:             meta.From,
		To:               meta.To,
		Subject:          meta.Subject,
		Date:             meta.Date,
		DateTimestamp:    parseDateTimestamp(meta.Date),
		EnvelopeFrom:     meta.EnvelopeFrom,
		EnvelopeRcpt:     envelopeRcpt,
		SenderEmail:      senderEmail,
		RecipientEmails:  recipients,
		SenderDomain:     senderDomain,
		RecipientDomains: recipientDomains,
		Domains:          allDomains,
		OrgIDs:           orgIDs,
		SHA256:           crypto.Digest(item.Blob),
		Signature:        s.signer.Sign(item.Blob),
		HasAttachments:   meta.HasAttachments,
		CASRefs:          meta.CASRefs,
		OCRText:          meta.OCRText,
		Size:             meta.Size,
		IngestedAt:       time.Now(),
	}

	analysis := s.detector.Analyze(detection.Input{
		Message:         msg,
		AttachmentNames: meta.AttachmentNames,
	})
	msg.IsSpam = analysis.RiskLevel == "high" || analysis.RiskLevel == "critical"

	if err := s.index.Upsert(ctx, msg); err != nil {
		return fmt.Errorf("index upsert: %w", err)
	}
	return nil
}

// parseDateTimestamp parses an RFC 5322 Date header into epoch seconds,
// returning 0 (never a legitimate value, §4.3) on failure.
func parseDateTimestamp(date string) int64 {
	if date == "" {
		return 0
	}
	t, err := mail.ParseDate(date)
	if err != nil {
		return 0
	}
	return t.Unix()
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// CASExists reports whether a content-addressed blob is already stored,
// backing the stateless /cas/check endpoint.
func (s *IngressService) CASExists(ctx context.Context, hash string) (bool, error) {
	return s.blobs.Head(ctx, "cas_"+hash+".enc")
}

// UploadCAS stores a content-addressed blob, backing the idempotent
// /cas/upload endpoint.
func (s *IngressService) UploadCAS(ctx context.Context, hash string, data []byte) error {
	return s.blobs.Put(ctx, "cas_"+hash+".enc", data)
}

// ErrNotFound is returned by services when a referenced message does
// not exist.
var ErrNotFound = apperr.NotFound
