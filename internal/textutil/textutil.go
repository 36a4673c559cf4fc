// Package textutil cleans user and model supplied text before it is stored,
// embedded in a prompt, or returned to the browser.
package textutil

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every element. Script and style bodies are dropped along
// with their tags.
var strict = bluemonday.StrictPolicy()

var whitespaceRun = regexp.MustCompile(`[\s\x00]+`)

// StripTags removes all markup from s and decodes the entities the sanitizer
// escaped, leaving plain text.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(strict.Sanitize(s))
}

// SanitizeField reduces s to a single line of plain text: markup stripped,
// whitespace runs (including line breaks and tabs) collapsed to one space,
// and the result trimmed.
func SanitizeField(s string) string {
	s = StripTags(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
