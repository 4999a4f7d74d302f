// Package names normalizes identity names for storage and lookup.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the canonical stored form of a display name: NFC with
// surrounding whitespace removed and inner runs of whitespace collapsed.
func Normalize(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), " ")
}

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Fold returns the comparison key of a name (lowercase, no diacritics, spaces for dashes).
func Fold(name string) string {
	name = RemoveDiacritics(Normalize(name))
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return name
}

// Matches reports whether query is contained in name, ignoring case and accents.
// An empty query matches everything.
func Matches(name, query string) bool {
	q := Fold(query)
	if q == "" {
		return true
	}
	return strings.Contains(Fold(name), q)
}
