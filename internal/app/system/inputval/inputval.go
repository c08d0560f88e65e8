// internal/app/system/inputval/inputval.go
package inputval

import (
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/urlutil"
)

// Text length limits, in runes.
const (
	MaxPostLen    = 2000
	MaxCommentLen = 500
	MaxStoryLen   = 280
	MaxMessageLen = 2000
)

// IsValidMediaURL accepts absolute http(s) URLs and clean root-relative
// paths (locally stored media).
func IsValidMediaURL(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	if strings.HasPrefix(s, "/") {
		return urlutil.SafeReturnRaw(s, "", "") == s
	}
	return urlutil.IsValidAbsHTTPURL(s)
}

// Content is the text/media pair posts, stories, and messages share.
type Content struct {
	Text  string        `json:"text"`
	Media *models.Media `json:"media"`
}

// Clean sanitizes and validates c. At least one of text or media is
// required. The returned type is the media type, or "text" without media.
func Clean(c Content, maxLen int) (Content, string, error) {
	out := Content{Text: htmlsanitize.Text(c.Text)}
	if utf8.RuneCountInString(out.Text) > maxLen {
		return Content{}, "", apperr.Validationf("text must be at most %d characters", maxLen)
	}

	if c.Media != nil && c.Media.URL != "" {
		m := models.Media{URL: strings.TrimSpace(c.Media.URL), Type: strings.ToLower(strings.TrimSpace(c.Media.Type))}
		if !IsValidMediaURL(m.URL) {
			return Content{}, "", apperr.Validationf("media url is invalid")
		}
		if m.Type != models.ContentImage && m.Type != models.ContentVideo {
			return Content{}, "", apperr.Validationf("media type must be image or video")
		}
		out.Media = &m
	}

	if out.Text == "" && out.Media == nil {
		return Content{}, "", apperr.Validationf("text or media is required")
	}
	if out.Media != nil {
		return out, out.Media.Type, nil
	}
	return out, models.ContentText, nil
}
