// Package normalize canonicalizes user-supplied identifiers before they are
// stored or compared.
package normalize

import (
	"strings"
	"unicode"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding space and collapses internal runs of whitespace.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Handle strips a leading "@", trims, and lowercases. Characters outside
// [a-z0-9_.] are dropped.
func Handle(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "@")
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r == '_' || r == '.' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ID trims an opaque identifier taken from a URL or body.
func ID(s string) string {
	return strings.TrimSpace(s)
}
