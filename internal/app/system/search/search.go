// internal/app/system/search/search.go
package search

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/waffle/pantry/text"
)

// Query length bounds, in runes.
const (
	MinQueryLen = 1
	MaxQueryLen = 50
)

// Query is a normalized people-search query.
type Query struct {
	Raw    string // trimmed input
	Folded string // case-folded, leading "@" removed
}

// Parse trims and folds q. ok is false when q is empty or too long.
//
//	"  @Ada " -> Query{Raw: "@Ada", Folded: "ada"}
func Parse(q string) (Query, bool) {
	raw := strings.TrimSpace(q)
	folded := text.Fold(strings.TrimPrefix(raw, "@"))
	n := utf8.RuneCountInString(folded)
	if n < MinQueryLen || n > MaxQueryLen {
		return Query{}, false
	}
	return Query{Raw: raw, Folded: folded}, true
}

// IsHandle reports whether the user clearly typed a handle ("@ada").
func (q Query) IsHandle() bool {
	return strings.HasPrefix(q.Raw, "@")
}

// PrefixPattern returns an anchored regular expression matching values that
// start with s. Regex metacharacters in s are escaped.
func PrefixPattern(s string) string {
	return "^" + regexp.QuoteMeta(s)
}

// WordPrefixPattern matches s at the start of any word, so "love" finds
// "Ada Lovelace".
func WordPrefixPattern(s string) string {
	return `(^|\s)` + regexp.QuoteMeta(s)
}
