package paging

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/circlehub/internal/app/system/apperr"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", PageSize},
		{"?limit=5", 5},
		{"?limit=0", PageSize},
		{"?limit=-3", PageSize},
		{"?limit=abc", PageSize},
		{"?limit=500", MaxPageSize},
	}
	for _, tc := range tests {
		r := httptest.NewRequest("GET", "/api/posts/feed"+tc.query, nil)
		if got := ParseLimit(r); got != tc.want {
			t.Errorf("ParseLimit(%q) = %d, want %d", tc.query, got, tc.want)
		}
	}
}

func TestParseBefore(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/posts/feed", nil)
	if got, err := ParseBefore(r); err != nil || !got.IsZero() {
		t.Errorf("missing cursor = %v, %v", got, err)
	}

	at := time.Date(2026, 3, 1, 12, 30, 0, 123000000, time.UTC)
	r = httptest.NewRequest("GET", "/api/posts/feed?before="+Cursor(at), nil)
	got, err := ParseBefore(r)
	if err != nil || !got.Equal(at) {
		t.Errorf("ParseBefore = %v, %v; want %v", got, err, at)
	}

	r = httptest.NewRequest("GET", "/api/posts/feed?before=yesterday", nil)
	if _, err := ParseBefore(r); !apperr.Is(err, apperr.Validation) {
		t.Errorf("bad cursor err = %v, want validation", err)
	}
}

func TestTrimPage(t *testing.T) {
	rows := []int{1, 2, 3, 4}
	if more := TrimPage(&rows, 3); !more || len(rows) != 3 {
		t.Errorf("TrimPage = %v, rows %v", more, rows)
	}
	rows = []int{1, 2}
	if more := TrimPage(&rows, 3); more || len(rows) != 2 {
		t.Errorf("TrimPage = %v, rows %v", more, rows)
	}
	if LimitPlusOne(20) != 21 {
		t.Errorf("LimitPlusOne(20) = %d", LimitPlusOne(20))
	}
}
