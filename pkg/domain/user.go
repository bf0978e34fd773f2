package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultInitials is used when a name yields no initials.
const DefaultInitials = "U"

// Initials derives a display monogram from the first rune of up to the first
// two whitespace-separated tokens of name, upper-cased.
func Initials(name string) string {
	tokens := strings.Fields(name)
	if len(tokens) > 2 {
		tokens = tokens[:2]
	}
	var b strings.Builder
	for _, tok := range tokens {
		r, _ := utf8.DecodeRuneInString(tok)
		if r == utf8.RuneError {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	if b.Len() == 0 {
		return DefaultInitials
	}
	return b.String()
}
