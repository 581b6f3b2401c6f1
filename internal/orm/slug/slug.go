// Package slug turns titles and names into URL-safe lowercase tokens
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Separator joins the alphanumeric runs of a slug
const Separator = "-"

// Make normalizes s into a slug: diacritics are stripped, the result is
// lowercased, apostrophes are dropped and every run of characters outside
// [a-z0-9] becomes a single separator.
func Make(s string) string {
	folded, _, err := transform.String(fold(), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	pending := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteString(Separator)
			}
			pending = false
			b.WriteRune(r)
		case isQuote(r):
			// "Fool's" -> "fools"
		default:
			pending = true
		}
	}
	return b.String()
}

// Equal reports whether two strings produce the same slug
func Equal(a, b string) bool {
	return Make(a) == Make(b)
}

// fold is built per call: transform chains carry state and are not safe for
// concurrent use.
func fold() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

func isQuote(r rune) bool {
	return r == '\'' || r == '’' || r == '`'
}
