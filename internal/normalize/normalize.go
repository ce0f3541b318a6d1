// Package normalize holds the canonical forms used for storage and lookups.
package normalize

import (
	"strings"
	"unicode/utf8"
)

// Email returns a normalized form of an email address suitable for
// storage and comparisons. Normalization currently trims surrounding
// whitespace and lower-cases the address.
func Email(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// Username applies the same rules as Email; usernames are unique case-insensitively.
func Username(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}

// Identifier normalizes a login identifier, which may be a username or an email.
func Identifier(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Content trims user-supplied text and reports its length in characters.
func Content(s string) (string, int) {
	s = strings.TrimSpace(s)
	return s, utf8.RuneCountInString(s)
}
