// ABOUTME: Text normalization applied to every line and every query before embedding.
// ABOUTME: Splits snake_case, kebab-case, camelCase and URL paths into words.
package embeddings

import (
	"regexp"
	"strings"
	"unicode"
)

var camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

// isSpace is unicode.IsSpace plus the byte order mark U+FEFF and without
// NEL (U+0085).
func isSpace(r rune) bool {
	if r == '\uFEFF' {
		return true
	}
	return r != '\u0085' && unicode.IsSpace(r)
}

// Normalize rewrites identifier-like text into space-separated words.
// Empty or whitespace-only input is returned unchanged.
//
//	Normalize("automatically-stop-rds-databases") // "automatically stop rds databases"
//	Normalize("getUserProfile")                   // "get User Profile"
func Normalize(text string) string {
	if strings.TrimFunc(text, isSpace) == "" {
		return text
	}

	s := strings.ReplaceAll(text, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	s = camelBoundary.ReplaceAllString(s, "$1 $2")
	s = strings.ReplaceAll(s, "/", " ")
	return strings.Join(strings.FieldsFunc(s, isSpace), " ")
}
