package detection

import (
	"regexp"
	"strings"
)

// isInternalDomain checks if a domain belongs to the organization.
func isInternalDomain(d string, internalDomains []string) bool {
	for _, internal := range internalDomains {
		if d == internal {
			return true
		}
	}
	return false
}

// emailRegex performs basic email format validation.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail reports whether email looks like a well-formed address.
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// levenshteinDistance calculates the edit distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
	}
	for i := 0; i <= len(s1); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(s2); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}
	return matrix[len(s1)][len(s2)]
}

// hasUrgencyLanguage checks if a message's subject/body contains
// urgency keywords. This is a simplified check; UrgencyFinancialStrategy
// provides the full weighted scoring.
func hasUrgencyLanguage(in Input) bool {
	text := strings.ToLower(in.Subject + " " + in.OCRText)
	return containsAny(text, []string{"urgent", "immediately", "asap", "right away", "today"})
}

// containsAny checks if text contains any of the keywords.
func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// localPart returns the portion of an addr-spec before '@'.
func localPart(addr string) string {
	idx := strings.Index(addr, "@")
	if idx < 0 {
		return strings.ToLower(addr)
	}
	return strings.ToLower(addr[:idx])
}

// recipientRoleHints inspects the local-parts of a message's recipients
// for role keywords (ceo, cfo, hr, finance, payroll, ...). There is no
// per-user directory in this system the way the teacher's provider APIs
// gave it a User.Role field — role targeting is instead inferred
// directly from the addr-spec, which is the only per-recipient signal
// ingestion carries.
func recipientRoleHints(recipients []string) []string {
	var hints []string
	for _, r := range recipients {
		hints = append(hints, localPart(r))
	}
	return hints
}
