package domain

import (
	"net/mail"
	"strings"
)

// CleanAddress extracts the bare addr-spec ("user@domain") from a
// possibly display-named address header value, lower-cased. Returns ""
// if raw does not parse as a single mailbox.
func CleanAddress(raw string) string {
	if raw == "" {
		return ""
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(addr.Address)
}

// CleanAddressList parses a comma-separated address list header (To,
// Cc) into bare, lower-cased addr-specs, skipping entries that fail to
// parse rather than failing the whole list.
func CleanAddressList(raw string) []string {
	if raw == "" {
		return nil
	}
	addrs, err := mail.ParseAddressList(raw)
	if err != nil {
		// mail.ParseAddressList aborts on the first malformed entry; fall
		// back to a best-effort per-field split so one bad address does
		// not erase every recipient's routing information.
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if a := CleanAddress(strings.TrimSpace(part)); a != "" {
				out = append(out, a)
			}
		}
		return out
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, strings.ToLower(a.Address))
	}
	return out
}

// DomainOf returns the lower-cased domain portion of an addr-spec, or ""
// if addr has no '@'.
func DomainOf(addr string) string {
	idx := strings.LastIndex(addr, "@")
	if idx < 0 || idx == len(addr)-1 {
		return ""
	}
	return strings.ToLower(addr[idx+1:])
}

// DomainsOf maps DomainOf over a list of addr-specs, dropping empties.
func DomainsOf(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if d := DomainOf(a); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// UnionDomains merges one or more domain slices into a deduplicated,
// order-stable union — the "involved domains" of a message (Glossary).
func UnionDomains(sets ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, set := range sets {
		for _, d := range set {
			d = strings.ToLower(d)
			if d == "" || seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}
