package htmlsanitize_test

import (
	"testing"

	"github.com/dalemusser/circlehub/internal/app/system/htmlsanitize"
)

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Hello, World!", "Hello, World!"},
		{"trims", "  hi  ", "hi"},
		{"strips tags", "<p><strong>Bold</strong> move</p>", "Bold move"},
		{"drops script", "hi<script>alert('xss')</script>", "hi"},
		{"keeps ampersand", "salt & pepper", "salt & pepper"},
		{"keeps apostrophe", "it's fine", "it's fine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsPlainText(t *testing.T) {
	if !htmlsanitize.IsPlainText("") {
		t.Error("empty string should be plain text")
	}
	if !htmlsanitize.IsPlainText("no tags here") {
		t.Error("expected plain text")
	}
	if htmlsanitize.IsPlainText("<b>bold</b>") {
		t.Error("expected tags to be detected")
	}
}
