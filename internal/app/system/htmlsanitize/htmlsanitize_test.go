package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/fuelbox/fuelbox/internal/app/system/htmlsanitize"
)

func TestStripTags(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"Alex", "Alex"},
		{"a@b.com", "a@b.com"},
		{"<b>Alex</b>", "Alex"},
		{"<script>alert(1)</script>Sam", "Sam"},
		{"Salt & Pepper", "Salt & Pepper"},
		{"  padded  ", "padded"},
	}
	for _, tt := range tests {
		if got := htmlsanitize.StripTags(tt.in); got != tt.want {
			t.Errorf("StripTags(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitize_Empty(t *testing.T) {
	if got := htmlsanitize.Sanitize(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestSanitize_KeepsFormatting(t *testing.T) {
	in := "<p><strong>High</strong> protein</p>"
	if got := htmlsanitize.Sanitize(in); got != in {
		t.Errorf("got %q, want %q", got, in)
	}
}

func TestSanitize_RemovesScript(t *testing.T) {
	got := htmlsanitize.Sanitize("<p>Oats</p><script>alert('xss')</script>")
	if got != "<p>Oats</p>" {
		t.Errorf("expected script removed, got %q", got)
	}
}

func TestSanitize_RemovesJavascriptHref(t *testing.T) {
	in := `<a href="javascript:alert('xss')">Click</a>`
	if got := htmlsanitize.Sanitize(in); strings.Contains(got, "javascript:") {
		t.Errorf("expected javascript: href to be removed, got %q", got)
	}
}

func TestSanitize_RemovesOnclick(t *testing.T) {
	got := htmlsanitize.Sanitize(`<span onclick="alert(1)">x</span>`)
	if strings.Contains(got, "onclick") {
		t.Errorf("expected onclick removed, got %q", got)
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"just text", true},
		{"1 < 2", true},
		{"a > b", true},
		{"<p>x</p>", false},
	}
	for _, tt := range tests {
		if got := htmlsanitize.IsPlainText(tt.in); got != tt.want {
			t.Errorf("IsPlainText(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPlainTextToHTML(t *testing.T) {
	got := htmlsanitize.PlainTextToHTML("line1\nline2 & <3")
	want := "line1<br>line2 &amp; &lt;3"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPrepareForDisplay(t *testing.T) {
	if got := htmlsanitize.PrepareForDisplay("a\nb"); string(got) != "a<br>b" {
		t.Errorf("plain text: got %q", got)
	}
	got := htmlsanitize.PrepareForDisplay("<em>ok</em><iframe src=x></iframe>")
	if string(got) != "<em>ok</em>" {
		t.Errorf("html: got %q", got)
	}
}
