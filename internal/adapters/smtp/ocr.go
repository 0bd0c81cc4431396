package smtp

import (
	"regexp"
	"strings"
)

// extractText recovers indexable text from an attachment payload.
// text/plain is decoded directly; application/pdf gets a best-effort
// scan for literal text-show operators. Anything else (images,
// binaries) yields no text — there is no OCR engine in this stack, so
// image attachments are archived but not full-text searchable, matching
// the agent's best-effort, log-on-failure extraction contract (§4.2
// step 2). Like the hand-built PDF writer used for export
// (internal/export/pdf.go), extraction here stays stdlib-only: a regex
// scan rather than a PDF library.
func extractText(contentType string, payload []byte) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "text/plain"):
		return strings.TrimSpace(string(payload))
	case strings.HasPrefix(ct, "application/pdf"):
		return extractPDFLiterals(payload)
	default:
		return ""
	}
}

// pdfTextOperator matches parenthesized strings preceding a Tj/TJ show
// operator in an uncompressed PDF content stream — a rough but
// dependency-free approximation of full PDF text extraction.
var pdfTextOperator = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*T[jJ]`)

func extractPDFLiterals(payload []byte) string {
	matches := pdfTextOperator.FindAllSubmatch(payload, -1)
	if len(matches) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, m := range matches {
		text := string(m[1])
		text = strings.ReplaceAll(text, `\(`, "(")
		text = strings.ReplaceAll(text, `\)`, ")")
		sb.WriteString(text)
		sb.WriteString(" ")
	}
	return strings.TrimSpace(sb.String())
}
