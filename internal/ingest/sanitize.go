package ingest

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips every HTML tag from free text and normalises whitespace.
// Partner Central descriptions sometimes carry pasted markup.
func SanitizeText(s string) string {
	return normalizeSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}
