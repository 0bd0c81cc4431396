package smtp

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// CASFragment is one attachment extracted from a walked message: its
// content hash (the CAS key) and raw plaintext bytes, plus whatever text
// was recovered from it for indexing.
type CASFragment struct {
	SHA256   string
	Data     []byte
	Filename string
	Text     string
}

// WalkResult is the product of walking an inbound MIME message: the
// skeleton message with attachment payloads replaced by CAS_REF
// placeholders (§4.2 step 2), plus the extracted fragments.
type WalkResult struct {
	Skeleton        []byte
	Fragments       []CASFragment
	HasAttachments  bool
	AttachmentNames []string
}

// walkMessage parses raw RFC 5322 bytes, extracts every attachment part
// into a CASFragment, and rewrites the message so each attachment's
// payload becomes a `[CAS_REF:<hash>]` placeholder carrying an
// X-OpenArchive-CAS-Ref header, mirroring
// original_source/sidecar/agent.py's ArchiveHandler.handle_DATA.
func walkMessage(raw []byte) (WalkResult, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return WalkResult{}, fmt.Errorf("parse message: %w", err)
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return WalkResult{}, fmt.Errorf("read body: %w", err)
	}

	contentType := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		// Not multipart: no attachments to walk, skeleton is the
		// original message unchanged.
		return WalkResult{Skeleton: raw}, nil
	}

	var frags []CASFragment
	var names []string
	var rebuilt bytes.Buffer
	mw := multipart.NewWriter(&rebuilt)
	// Reuse the original boundary so downstream parsers see a
	// structurally identical message, only with payloads swapped out.
	if boundary := params["boundary"]; boundary != "" {
		_ = mw.SetBoundary(boundary)
	}

	mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return WalkResult{}, fmt.Errorf("read part: %w", err)
		}

		filename := part.FileName()
		disposition := part.Header.Get("Content-Disposition")
		isAttachment := strings.Contains(strings.ToLower(disposition), "attachment") || filename != ""

		payload, err := io.ReadAll(decodeTransferEncoding(part))
		if err != nil {
			return WalkResult{}, fmt.Errorf("read part payload: %w", err)
		}

		// The payload above is already decoded to raw bytes, so the
		// recreated part must say so — otherwise a downstream MIME parser
		// (rehydrate.go, or the recipient's own client) tries to decode
		// already-raw content a second time.
		switch strings.ToLower(part.Header.Get("Content-Transfer-Encoding")) {
		case "quoted-printable", "base64":
			part.Header.Set("Content-Transfer-Encoding", "8bit")
		}

		w, err := mw.CreatePart(part.Header)
		if err != nil {
			return WalkResult{}, fmt.Errorf("recreate part: %w", err)
		}

		if isAttachment && len(payload) > 0 {
			sum := sha256.Sum256(payload)
			hash := hex.EncodeToString(sum[:])
			text := extractText(part.Header.Get("Content-Type"), payload)

			frags = append(frags, CASFragment{SHA256: hash, Data: payload, Filename: filename, Text: text})
			names = append(names, filename)

			placeholder := fmt.Sprintf("[CAS_REF:%s]", hash)
			fmt.Fprint(w, placeholder)
		} else {
			w.Write(payload)
		}
	}
	mw.Close()

	skeleton := rebuildHeaders(msg.Header, rebuilt.Bytes())
	return WalkResult{
		Skeleton:        skeleton,
		Fragments:       frags,
		HasAttachments:  len(frags) > 0,
		AttachmentNames: names,
	}, nil
}

func decodeTransferEncoding(part *multipart.Part) io.Reader {
	switch strings.ToLower(part.Header.Get("Content-Transfer-Encoding")) {
	case "quoted-printable":
		return quotedprintable.NewReader(part)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, part)
	default:
		return part
	}
}

func rebuildHeaders(h mail.Header, body []byte) []byte {
	var buf bytes.Buffer
	for key, values := range h {
		for _, v := range values {
			fmt.Fprintf(&buf, "%s: %s\r\n", key, v)
		}
	}
	fmt.Fprintf(&buf, "\r\n")
	buf.Write(body)
	return buf.Bytes()
}
