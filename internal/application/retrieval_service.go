package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/openarchive/archive/internal/apperr"
	"github.com/openarchive/archive/internal/domain"
	"github.com/openarchive/archive/internal/domain/crypto"
	"github.com/openarchive/archive/internal/mime"
	"github.com/openarchive/archive/internal/ports"
)

// RetrievalService implements fetch → decrypt → re-hydrate (C7).
type RetrievalService struct {
	blobs  ports.BlobStore
	index  ports.SearchIndex
	signer *crypto.Signer
}

// NewRetrievalService wires the retrieval pipeline's dependencies.
func NewRetrievalService(blobs ports.BlobStore, index ports.SearchIndex, signer *crypto.Signer) *RetrievalService {
	return &RetrievalService{blobs: blobs, index: index, signer: signer}
}

// IntegrityStatus is the GET /messages/{id}/verify outcome.
type IntegrityStatus string

const (
	IntegrityValid       IntegrityStatus = "VALID"
	IntegrityTampered    IntegrityStatus = "TAMPERED"
	IntegrityUnavailable IntegrityStatus = "UNAVAILABLE"
)

// VerifyIntegrity recomputes the HMAC over a message's stored ciphertext
// and compares it against the signature recorded at ingest time.
func (s *RetrievalService) VerifyIntegrity(ctx context.Context, id uuid.UUID, callerOrgID int64) (IntegrityStatus, error) {
	msg, err := s.index.Get(ctx, id.String())
	if err != nil {
		return "", apperr.New(apperr.KindNotFound, "message "+id.String(), err)
	}
	if !msg.OwnedBy(callerOrgID) {
		return "", apperr.New(apperr.KindTenantDenied, "message "+id.String(), nil)
	}

	ciphertext, err := s.blobs.Get(ctx, msg.ID.String()+".enc")
	if err != nil {
		return IntegrityUnavailable, nil
	}

	if s.signer.Verify(ciphertext, msg.Signature) {
		return IntegrityValid, nil
	}
	return IntegrityTampered, nil
}

// RetrievedMessage is the interactive retrieval response shape (§4.4
// step 5): the index record plus its re-hydrated body and attachments.
type RetrievedMessage struct {
	Message     domain.Message
	TextBody    string
	HTMLBody    string
	Attachments []mime.Attachment
	RawMIME     []byte
	Warnings    []string
}

// Fetch retrieves, decrypts, and re-hydrates a message. callerOrgID must
// be a member of the record's owning org set or retrieval is denied.
func (s *RetrievalService) Fetch(ctx context.Context, id uuid.UUID, callerOrgID int64, forExport bool) (RetrievedMessage, error) {
	msg, err := s.index.Get(ctx, id.String())
	if err != nil {
		return RetrievedMessage{}, apperr.New(apperr.KindNotFound, "message "+id.String(), err)
	}
	if !msg.OwnedBy(callerOrgID) {
		return RetrievedMessage{}, apperr.New(apperr.KindTenantDenied, "message "+id.String(), nil)
	}

	ciphertext, err := s.blobs.Get(ctx, msg.ID.String()+".enc")
	if err != nil {
		return RetrievedMessage{}, apperr.New(apperr.KindNotFound, "blob for "+id.String(), err)
	}

	plaintext, err := crypto.Decrypt(msg.Key, ciphertext)
	if err != nil {
		return RetrievedMessage{}, apperr.New(apperr.KindIntegrityViolation, "decrypt "+id.String(), err)
	}

	rehydrated, err := mime.Rehydrate(ctx, plaintext, s.fetchCAS, forExport)
	if err != nil {
		return RetrievedMessage{}, fmt.Errorf("rehydrate %s: %w", id, err)
	}

	htmlBody := rehydrated.HTMLBody
	if htmlBody != "" && len(rehydrated.InlineParts) > 0 {
		htmlBody = mime.RewriteInlineCIDs(htmlBody, rehydrated.InlineParts)
	}

	return RetrievedMessage{
		Message:     msg,
		TextBody:    rehydrated.TextBody,
		HTMLBody:    mime.Sanitize(htmlBody),
		Attachments: rehydrated.Attachments,
		RawMIME:     rehydrated.RawMIME,
		Warnings:    rehydrated.Warnings,
	}, nil
}

// Thread reconstructs a message's conversation, grounded on
// original_source/core/threads.py's combined filter across message_id,
// in_reply_to, and references, scoped to the caller's org and sorted by
// timestamp. ports.SearchFilter has no dedicated thread-key fields, so
// the anchor message's Message-ID is matched against the index's
// free-text query, which Meilisearch searches across every indexed
// field including in_reply_to and references.
func (s *RetrievalService) Thread(ctx context.Context, id uuid.UUID, callerOrgID int64) ([]domain.Message, error) {
	anchor, err := s.index.Get(ctx, id.String())
	if err != nil {
		return nil, apperr.New(apperr.KindNotFound, "message "+id.String(), err)
	}
	if !anchor.OwnedBy(callerOrgID) {
		return nil, apperr.New(apperr.KindTenantDenied, "message "+id.String(), nil)
	}
	if anchor.MessageID == "" {
		return []domain.Message{anchor}, nil
	}

	result, err := s.index.Search(ctx, ports.SearchFilter{
		OrgID: callerOrgID,
		Query: anchor.MessageID,
	}, ports.SearchOptions{Limit: 500, SortDesc: false})
	if err != nil {
		return nil, fmt.Errorf("thread search: %w", err)
	}
	return result.Hits, nil
}

func (s *RetrievalService) fetchCAS(ctx context.Context, hash string) ([]byte, error) {
	return s.blobs.Get(ctx, "cas_"+hash+".enc")
}
