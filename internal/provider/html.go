package provider

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	stripPolicy  = bluemonday.StrictPolicy()
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
	breakTagsRe  = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/tr|/li)\s*/?\s*>`)
)

// StripHTML reduces an HTML body to plain text. Used only as a fallback when
// a message has no text/plain part.
func StripHTML(raw string) string {
	// Preserve line structure before tags are removed, or the whole body
	// collapses into one unsearchable line.
	withBreaks := breakTagsRe.ReplaceAllString(raw, "\n")
	stripped := stripPolicy.Sanitize(withBreaks)
	unescaped := html.UnescapeString(stripped)
	collapsed := blankLinesRe.ReplaceAllString(unescaped, "\n\n")
	return strings.TrimSpace(collapsed)
}
