// Package slug turns display names into URL-safe tokens.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold strips combining marks after canonical decomposition, so
// "Château" folds to "Chateau". Runes with no ASCII decomposition are
// dropped afterwards.
var asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// Make derives a slug from text. With allowUnicode the original letters are
// kept (NFKC-normalized); otherwise the text is transliterated to ASCII
// first. Either way the result is lowercased, stripped of anything that is
// not a letter, digit, hyphen or underscore, with whitespace runs collapsed
// to single hyphens. Make is idempotent on its own output.
func Make(text string, allowUnicode bool) string {
	var s string
	if allowUnicode {
		s = norm.NFKC.String(text)
	} else {
		folded, _, err := transform.String(asciiFold, text)
		if err != nil {
			folded = text
		}
		var b strings.Builder
		for _, r := range folded {
			if r < 128 {
				b.WriteRune(r)
			}
		}
		s = b.String()
	}

	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	lastHyphen := true // suppress leading hyphens
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			lastHyphen = false
		case unicode.IsSpace(r) || r == '-':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	return strings.Trim(b.String(), "-_")
}
