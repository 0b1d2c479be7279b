// Package htmlsanitize cleans text that came from the backend before it is
// placed on a page.
//
// Two policies are used:
//   - StripTags removes all markup and returns plain text. Display names,
//     categories and other single-line fields go through it.
//   - Sanitize keeps a small set of formatting tags. Catalog descriptions
//     may carry light markup and go through it (via PrepareForDisplay).
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()
	rich   = newRichPolicy()
)

func newRichPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "b", "em", "i", "u", "ul", "ol", "li", "span")
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	return p
}

// StripTags removes every tag and returns unescaped plain text, ready to be
// escaped once more by html/template.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Sanitize keeps basic formatting and links and drops everything else.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return rich.Sanitize(s)
}

// IsPlainText reports whether s contains nothing that looks like a tag.
func IsPlainText(s string) bool {
	i := strings.Index(s, "<")
	return i < 0 || !strings.Contains(s[i:], ">")
}

// PlainTextToHTML escapes s and turns newlines into <br>.
func PlainTextToHTML(s string) template.HTML {
	if s == "" {
		return ""
	}
	escaped := template.HTMLEscapeString(s)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

// PrepareForDisplay returns safe HTML for s whether it is plain text or
// markup.
func PrepareForDisplay(s string) template.HTML {
	if IsPlainText(s) {
		return PlainTextToHTML(s)
	}
	return template.HTML(Sanitize(s))
}
