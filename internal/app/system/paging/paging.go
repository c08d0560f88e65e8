// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the default number of feed items per page.
const PageSize = 20

// MaxPageSize caps client-supplied limits.
const MaxPageSize = 50

// ParseLimit reads the "limit" query parameter, clamped to [1, MaxPageSize].
// Missing or invalid values yield PageSize.
func ParseLimit(r *http.Request) int {
	s := query.Get(r, "limit")
	if s == "" {
		return PageSize
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return PageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// ParseBefore reads the "before" keyset cursor, an RFC 3339 timestamp. A
// missing cursor returns the zero time, meaning "from the newest".
func ParseBefore(r *http.Request) (time.Time, error) {
	s := strings.TrimSpace(query.Get(r, "before"))
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, apperr.Validationf("before must be an RFC 3339 timestamp")
	}
	return t, nil
}

// LimitPlusOne returns limit+1 for look-ahead pagination (fetch one extra
// row to detect whether another page exists).
func LimitPlusOne(limit int) int64 { return int64(limit + 1) }

// TrimPage trims rows fetched with LimitPlusOne to limit and reports whether
// more rows exist.
func TrimPage[T any](rows *[]T, limit int) bool {
	if len(*rows) > limit {
		*rows = (*rows)[:limit]
		return true
	}
	return false
}

// Cursor formats t as the next "before" value.
func Cursor(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
