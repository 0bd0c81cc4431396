package mime

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"regexp"
	"strings"
)

// CASFetcher resolves a CAS hash to its plaintext payload.
type CASFetcher func(ctx context.Context, hash string) ([]byte, error)

// Attachment is one re-hydrated attachment surfaced to interactive
// retrieval callers (§4.4 step 5).
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	ContentB64  string `json:"content_b64"`
}

// Rehydrated is the product of walking a decrypted message and restoring
// every CAS-referenced attachment in place.
type Rehydrated struct {
	RawMIME     []byte
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
	InlineParts map[string]InlinePart
	Warnings    []string
}

var casRefPlaceholder = regexp.MustCompile(`\[CAS_REF:([0-9a-fA-F]{64})\]`)

// contentID returns a part's Content-ID header stripped of its angle
// brackets, matching the bare form `cid:` references use in HTML
// bodies (RFC 2392).
func contentID(header textproto.MIMEHeader) string {
	raw := strings.TrimSpace(header.Get("Content-Id"))
	return strings.TrimSuffix(strings.TrimPrefix(raw, "<"), ">")
}

// Rehydrate walks a decrypted skeleton message, restoring every
// CAS-referenced attachment payload in place. A missing CAS blob
// degrades gracefully: the part is kept with a warning marker instead
// of failing the whole retrieval (§4.4).
func Rehydrate(ctx context.Context, skeleton []byte, fetch CASFetcher, forceAttachment bool) (Rehydrated, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(skeleton))
	if err != nil {
		return Rehydrated{}, fmt.Errorf("parse skeleton: %w", err)
	}
	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return Rehydrated{}, fmt.Errorf("read skeleton body: %w", err)
	}

	result := Rehydrated{}

	contentType := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		text := string(body)
		result.TextBody = text
		result.RawMIME = skeleton
		return result, nil
	}

	var rebuilt bytes.Buffer
	mw := multipart.NewWriter(&rebuilt)
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
			return Rehydrated{}, fmt.Errorf("read part: %w", err)
		}

		header := part.Header
		payload, err := io.ReadAll(part)
		if err != nil {
			return Rehydrated{}, fmt.Errorf("read part payload: %w", err)
		}

		hash := header.Get("X-OpenArchive-CAS-Ref")
		if hash == "" {
			if m := casRefPlaceholder.FindSubmatch(payload); m != nil {
				hash = string(m[1])
			}
		}

		partContentType := header.Get("Content-Type")

		if hash != "" {
			data, ferr := fetch(ctx, hash)
			if ferr != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("missing CAS blob %s: %v", hash, ferr))
				w, _ := mw.CreatePart(header)
				fmt.Fprintf(w, "[MISSING ATTACHMENT: %s]", hash)
				continue
			}

			filename := part.FileName()
			if filename == "" {
				filename = fmt.Sprintf("attachment_%s", hash[:8])
			}

			header.Del("X-OpenArchive-CAS-Ref")
			header.Set("Content-Transfer-Encoding", "base64")
			disposition := header.Get("Content-Disposition")
			if forceAttachment || strings.Contains(strings.ToLower(disposition), "inline") || disposition == "" {
				header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
			}

			w, werr := mw.CreatePart(header)
			if werr != nil {
				return Rehydrated{}, fmt.Errorf("recreate part: %w", werr)
			}
			enc := base64.StdEncoding.EncodeToString(data)
			for i := 0; i < len(enc); i += 76 {
				end := i + 76
				if end > len(enc) {
					end = len(enc)
				}
				fmt.Fprintf(w, "%s\r\n", enc[i:end])
			}

			result.Attachments = append(result.Attachments, Attachment{
				Filename:    filename,
				ContentType: partContentType,
				Size:        len(data),
				ContentB64:  base64.StdEncoding.EncodeToString(data),
			})

			if cid := contentID(header); cid != "" {
				if result.InlineParts == nil {
					result.InlineParts = make(map[string]InlinePart)
				}
				result.InlineParts[cid] = InlinePart{ContentType: partContentType, Data: data}
			}
			continue
		}

		w, werr := mw.CreatePart(header)
		if werr != nil {
			return Rehydrated{}, fmt.Errorf("recreate plain part: %w", werr)
		}
		w.Write(payload)

		switch {
		case strings.HasPrefix(partContentType, "text/plain"):
			result.TextBody += string(payload)
		case strings.HasPrefix(partContentType, "text/html"):
			result.HTMLBody += string(payload)
		}
	}
	mw.Close()

	var out bytes.Buffer
	for key, values := range msg.Header {
		for _, v := range values {
			fmt.Fprintf(&out, "%s: %s\r\n", key, v)
		}
	}
	fmt.Fprint(&out, "\r\n")
	out.Write(rebuilt.Bytes())
	result.RawMIME = out.Bytes()

	return result, nil
}
