package classifier

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacriticStripper removes combining marks so that "Genève" and "Geneve"
// normalize identically.
var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases the text, strips diacritics, collapses hashtags,
// emoji and markup to plain tokens and collapses whitespace. The result is
// what every keyword table in this package matches against.
func Normalize(text string) string {
	text = strings.ToLower(text)

	if stripped, _, err := transform.String(diacriticStripper, text); err == nil {
		text = stripped
	}

	var b strings.Builder
	b.Grow(len(text))
	lastSpace := true
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			// Hashtag markers, emoji, punctuation and markup all become
			// word boundaries; "#recrutement" matches like "recrutement".
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// pad wraps a normalized string in single spaces so substring matching
// against padded keywords respects word boundaries.
func pad(s string) string {
	return " " + s + " "
}

// wordCount counts whitespace-separated tokens in a normalized string.
func wordCount(s string) int {
	return len(strings.Fields(s))
}
