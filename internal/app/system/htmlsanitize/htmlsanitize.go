// Package htmlsanitize strips markup from user-generated text.
//
// Posts, comments, bios, and messages are plain text. Clients render them
// as text, but the API still removes any HTML so stored content is safe for
// consumers that do not escape.
package htmlsanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictOnce sync.Once
	strict     *bluemonday.Policy
)

func policy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}

// Text removes all HTML tags from s and trims surrounding whitespace.
// Entities produced by the sanitizer for &, <, > and quotes are unescaped
// back to plain characters.
func Text(s string) string {
	if s == "" {
		return ""
	}
	out := policy().Sanitize(s)
	out = entityReplacer.Replace(out)
	return strings.TrimSpace(out)
}

// IsPlainText reports whether s contains no tag-like sequences.
func IsPlainText(s string) bool {
	return !strings.Contains(s, "<")
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&#34;", `"`,
	"&#39;", "'",
)
