package sanitize

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text strips markup and control bytes from user-supplied text and trims it.
// Entities escaped by the policy are decoded again so "&" round-trips.
func Text(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = strict.Sanitize(input)
	return strings.TrimSpace(html.UnescapeString(input))
}

// Truncate shortens s to at most n runes
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
