// Package smtp implements the edge agent's SMTP journaling listener:
// accept-any-credentials auth (journaling connectors authenticate with
// whatever the mail relay is configured to send), per-connection source
// IP allow-listing, MIME walk + CAS extraction, and durable buffering,
// mirroring original_source/sidecar/agent.py's ArchiveHandler.
package smtp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openarchive/archive/internal/domain/crypto"
	"github.com/openarchive/archive/internal/edge/buffer"
)

// IngestMetadata is the JSON document buffered alongside the encrypted
// message skeleton; sync.go ships it to Core verbatim (§4.2/§6).
type IngestMetadata struct {
	From            string   `json:"from"`
	To              string   `json:"to"`
	Subject         string   `json:"subject"`
	Date            string   `json:"date"`
	MessageID       string   `json:"message_id"`
	InReplyTo       []string `json:"in_reply_to"`
	References      []string `json:"references"`
	EnvelopeFrom    string   `json:"envelope_from"`
	EnvelopeRcpt    []string `json:"envelope_rcpt"`
	Size            int      `json:"size"`
	HasAttachments  bool     `json:"has_attachments"`
	CASRefs         []string `json:"cas_refs"`
	AttachmentNames []string `json:"attachment_names"`
	OCRText         string   `json:"ocr_text"`
}

// Server wraps a go-smtp server configured with a dummy authenticator
// and IP allow-list, writing every accepted message into buf.
type Server struct {
	srv *gosmtp.Server
	log *zap.Logger
}

// NewServer builds a listener bound to addr. allowed IPs outside
// allowlist are rejected at connection time via the backend's session
// constructor.
func NewServer(addr string, allowlist *Allowlist, buf *buffer.Buffer, log *zap.Logger) *Server {
	be := &backend{buf: buf, allowlist: allowlist, log: log}

	srv := gosmtp.NewServer(be)
	srv.Addr = addr
	srv.Domain = "openarchive.local"
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.MaxMessageBytes = 50 * 1024 * 1024
	srv.MaxRecipients = 100
	srv.AllowInsecureAuth = true

	return &Server{srv: srv, log: log}
}

// ListenAndServe blocks until the listener is closed.
func (s *Server) ListenAndServe() error {
	s.log.Info("smtp listener starting", zap.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

// Close shuts the listener down.
func (s *Server) Close() error {
	return s.srv.Close()
}

type backend struct {
	buf       *buffer.Buffer
	allowlist *Allowlist
	log       *zap.Logger
}

func (b *backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	remote, _, err := net.SplitHostPort(c.Conn().RemoteAddr().String())
	if err == nil {
		ip := net.ParseIP(remote)
		if ip != nil && !b.allowlist.Allowed(ip) {
			b.log.Warn("smtp access denied", zap.String("peer", remote))
			return nil, &gosmtp.SMTPError{Code: 550, Message: "Access Denied"}
		}
	}
	return &session{buf: b.buf, log: b.log}, nil
}

type session struct {
	buf  *buffer.Buffer
	log  *zap.Logger
	from string
	rcpt []string
}

// AuthMechanisms/Auth implement go-smtp's optional AuthSession
// interface: every PLAIN attempt succeeds regardless of credentials,
// matching agent.py's DummyAuthenticator ("accept any username/password
// for internal network compatibility").
func (s *session) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *session) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		return nil
	}), nil
}

func (s *session) Mail(from string, opts *gosmtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *session) Rcpt(to string, opts *gosmtp.RcptOptions) error {
	s.rcpt = append(s.rcpt, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read data: %w", err)
	}

	walked, err := walkMessage(raw)
	if err != nil {
		s.log.Warn("mime walk failed, buffering raw message", zap.Error(err))
		walked = WalkResult{Skeleton: raw}
	}

	msgID := uuid.New().String()
	key, err := crypto.GenerateKey()
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	var texts []string
	var casRefs []string
	ctx := context.Background()
	for _, frag := range walked.Fragments {
		if err := s.buf.SaveCASBlob(ctx, buffer.PendingCAS{Hash: frag.SHA256, Data: frag.Data}); err != nil {
			s.log.Warn("buffer cas blob failed", zap.String("hash", frag.SHA256), zap.Error(err))
			continue
		}
		casRefs = append(casRefs, frag.SHA256)
		if frag.Text != "" {
			texts = append(texts, frag.Text)
		}
	}

	encrypted, err := crypto.Encrypt(key, walked.Skeleton)
	if err != nil {
		return fmt.Errorf("encrypt message: %w", err)
	}

	meta := IngestMetadata{
		From:            headerFromRaw(walked.Skeleton, "From"),
		To:              headerFromRaw(walked.Skeleton, "To"),
		Subject:         headerFromRaw(walked.Skeleton, "Subject"),
		Date:            headerFromRaw(walked.Skeleton, "Date"),
		MessageID:       headerFromRaw(walked.Skeleton, "Message-Id"),
		InReplyTo:       splitHeaderList(headerFromRaw(walked.Skeleton, "In-Reply-To")),
		References:      splitHeaderList(headerFromRaw(walked.Skeleton, "References")),
		EnvelopeFrom:    s.from,
		EnvelopeRcpt:    s.rcpt,
		Size:            len(raw),
		HasAttachments:  walked.HasAttachments,
		CASRefs:         casRefs,
		AttachmentNames: walked.AttachmentNames,
		OCRText:         strings.Join(texts, "\n"),
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if err := s.buf.SaveMessage(ctx, buffer.PendingMessage{
		ID:       msgID,
		Key:      key,
		Metadata: metaJSON,
		Blob:     encrypted,
	}); err != nil {
		return fmt.Errorf("buffer message: %w", err)
	}

	s.log.Info("received message",
		zap.String("id", msgID), zap.String("from", meta.From), zap.String("subject", meta.Subject),
		zap.Int("size", meta.Size))
	return nil
}

func (s *session) Reset() {
	s.from = ""
	s.rcpt = nil
}

func (s *session) Logout() error {
	return nil
}

func headerFromRaw(raw []byte, name string) string {
	lines := strings.Split(string(raw), "\r\n")
	prefix := strings.ToLower(name) + ":"
	for _, line := range lines {
		if strings.HasPrefix(strings.ToLower(line), prefix) {
			return strings.TrimSpace(line[len(prefix):])
		}
		if line == "" {
			break
		}
	}
	return ""
}

func splitHeaderList(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Fields(v)
}

// contentHash is exposed for agents/tests that need a standalone CAS key
// without a full MIME walk.
func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
