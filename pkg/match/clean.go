package match

import (
	"strings"
	"unicode"
)

// Clean normalises a line for punctuation- and case-insensitive comparison:
// the text is trimmed and lower-cased, then every rune that is neither a word
// character ([A-Za-z0-9_]) nor whitespace is removed. Internal whitespace is
// kept as typed.
func Clean(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

func isWordRune(r rune) bool {
	return r == '_' || isASCIILetter(r) || ('0' <= r && r <= '9')
}

func isASCIILetter(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

// IsMaskable reports whether r is hidden until confirmed. Only ASCII letters
// are masked; digits, punctuation and whitespace are always shown.
func IsMaskable(r rune) bool { return isASCIILetter(r) }

func foldEqual(a, b rune) bool {
	return unicode.ToLower(a) == unicode.ToLower(b)
}
