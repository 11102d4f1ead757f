package sanitizer

import (
	"strings"
	"unicode"
)

// SanitizeLabel normalizes short display fields such as a car model or a
// location: trims, collapses internal whitespace runs to a single space,
// and drops control characters.
func SanitizeLabel(s string) string {
	return strings.Join(strings.Fields(stripControl(s)), " ")
}

// SanitizeText normalizes long free text such as a description. Newlines
// survive, other control characters and trailing whitespace do not.
func SanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
