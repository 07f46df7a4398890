package ingest

import (
	"strings"
)

// normalizeSpace collapses runs of whitespace into one space and trims the string.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// appendUnique appends v unless it is empty or already present (case-insensitive).
func appendUnique(list []string, v string) []string {
	vClean := strings.TrimSpace(v)
	if vClean == "" {
		return list
	}
	for _, existing := range list {
		if strings.EqualFold(existing, vClean) {
			return list
		}
	}
	return append(list, vClean)
}

// splitPrograms splits an "APN Programs" cell on semicolons or commas.
func splitPrograms(cell string) []string {
	var out []string
	for _, p := range strings.FieldsFunc(cell, func(r rune) bool { return r == ';' || r == ',' || r == '|' }) {
		out = appendUnique(out, normalizeSpace(p))
	}
	return out
}

// TruncateText cuts a string to maxLen runes, appending an ellipsis if truncated.
func TruncateText(text string, maxLen int) string {
	r := []rune(text)
	if len(r) <= maxLen {
		return text
	}
	if maxLen > 3 {
		return string(r[:maxLen-3]) + "..."
	}
	return string(r[:maxLen])
}
