// Package mime handles post-decryption transformations: PII redaction,
// CAS-reference re-hydration, and inline HTML sanitization, grounded on
// original_source/core/redaction.py and exports.py's generate_eml.
package mime

import (
	"fmt"
	"regexp"
	"sort"
)

// piiPattern is one named PII detector; right-to-left substitution
// during Redact preserves the byte offsets of patterns matched earlier
// in the same pass.
type piiPattern struct {
	label string
	re    *regexp.Regexp
}

var piiPatterns = []piiPattern{
	{"EMAIL", regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`)},
	{"CREDIT_CARD", regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`)},
	{"IPV4", regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)},
	{"SSN", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"PHONE", regexp.MustCompile(`\b(?:\+?\d{1,3}[- ]?)?\(?\d{3}\)?[- ]?\d{3}[- ]?\d{4}\b`)},
	{"IBAN", regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z\d]{4}\d{7}[A-Z\d]{0,16}\b`)},
	{"SECRET_KEY", regexp.MustCompile(`\b(?:AWS|KEY|SECRET|TOKEN|API)[A-Z0-9/=+-]{20,}\b`)},
}

type piiMatch struct {
	label      string
	start, end int
}

// Redact masks every recognized PII span in text with a `[LABEL]`
// marker. Matches are applied right-to-left (highest start offset
// first) so replacing one span never shifts the offsets of another
// still pending.
func Redact(text string) string {
	if text == "" {
		return ""
	}

	var matches []piiMatch
	for _, p := range piiPatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			matches = append(matches, piiMatch{label: p.label, start: loc[0], end: loc[1]})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].start > matches[j].start })

	redacted := text
	for _, m := range matches {
		if m.end > len(redacted) {
			continue
		}
		redacted = redacted[:m.start] + fmt.Sprintf("[%s]", m.label) + redacted[m.end:]
	}
	return redacted
}
