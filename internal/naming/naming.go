// Package naming canonicalizes schema and tag names for SDK generators.
package naming

import (
	"maps"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultAcronyms are literal substitutions applied before casing.
var DefaultAcronyms = map[string]string{
	"oauth": "OAuth",
	"ssh":   "SSH",
	"ipv4":  "IPv4",
	"ipv6":  "IPv6",
}

// Canonicalizer maps names to their canonical PascalCase form.
type Canonicalizer struct {
	acronyms map[string]string
	keys     []string
}

// NewCanonicalizer builds a Canonicalizer from a literal substitution table.
// Keys must not overlap each other or appear in any value; see CheckAcronyms.
func NewCanonicalizer(acronyms map[string]string) *Canonicalizer {
	return &Canonicalizer{
		acronyms: acronyms,
		keys:     slices.Sorted(maps.Keys(acronyms)),
	}
}

// Canonical applies the acronym table, then PascalCase.
func (c *Canonicalizer) Canonical(name string) string {
	for _, k := range c.keys {
		name = strings.ReplaceAll(name, k, c.acronyms[k])
	}
	return PascalCase(name)
}

// CheckAcronyms returns the first pair of entries that would make the
// substitution order-dependent or non-idempotent.
func CheckAcronyms(acronyms map[string]string) (string, string, bool) {
	keys := slices.Sorted(maps.Keys(acronyms))
	for _, a := range keys {
		if a == "" {
			return a, a, false
		}
		for _, b := range keys {
			if a != b && strings.Contains(b, a) {
				return a, b, false
			}
			if strings.Contains(acronyms[b], a) {
				return a, acronyms[b], false
			}
		}
	}
	return "", "", true
}

// PascalCase upper-cases the first letter of every word and leaves the rest
// of each word as written, so existing acronyms survive.
func PascalCase(s string) string {
	caser := cases.Title(language.Und, cases.NoLower)
	var result strings.Builder
	for _, word := range SplitWords(s) {
		result.WriteString(caser.String(word))
	}
	return result.String()
}

// SplitWords splits on separators and on lower-to-upper boundaries.
func SplitWords(s string) []string {
	var words []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if r == '_' || r == '-' || r == ' ' || r == '.' {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
			continue
		}

		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				if current.Len() > 0 {
					words = append(words, current.String())
					current.Reset()
				}
			}
		}

		current.WriteRune(r)
	}

	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}
