package mime

import (
	"encoding/base64"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var cidRefPattern = regexp.MustCompile(`cid:([^"'\s)]+)`)

// RewriteInlineCIDs replaces `cid:<content-id>` references in an HTML
// body with `data:` URIs, given a lookup of content-id to (mime type,
// raw bytes) for the message's inline parts (§4.4 step 5).
func RewriteInlineCIDs(html string, inline map[string]InlinePart) string {
	return cidRefPattern.ReplaceAllStringFunc(html, func(match string) string {
		cid := cidRefPattern.FindStringSubmatch(match)[1]
		part, ok := inline[cid]
		if !ok {
			return match
		}
		encoded := base64.StdEncoding.EncodeToString(part.Data)
		return "data:" + part.ContentType + ";base64," + encoded
	})
}

// InlinePart is one inline (Content-ID addressable) part of a message,
// typically an embedded image referenced from the HTML body.
type InlinePart struct {
	ContentType string
	Data        []byte
}

var sanitizer = bluemonday.UGCPolicy()

// Sanitize strips scripting and unsafe markup from an HTML body before
// it is returned to an interactive retrieval caller.
func Sanitize(html string) string {
	return sanitizer.Sanitize(html)
}
