package chat

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize lower-cases and trims an utterance. Every matcher and the intent
// classifier compare against normalized text.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// containsAny reports whether normalized contains any keyword. Keywords of
// two runes or fewer ("dr") must appear as a whole word so that they don't
// fire inside longer words such as "address".
func containsAny(normalized string, keywords []string) bool {
	var words []string
	for _, kw := range keywords {
		if utf8.RuneCountInString(kw) > 2 {
			if strings.Contains(normalized, kw) {
				return true
			}
			continue
		}
		if words == nil {
			words = strings.FieldsFunc(normalized, isSeparator)
		}
		for _, w := range words {
			if w == kw {
				return true
			}
		}
	}
	return false
}

// countHits counts keywords that occur as substrings of normalized.
func countHits(normalized string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(normalized, kw) {
			n++
		}
	}
	return n
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsMark(r)
}

// longWords splits text on whitespace and keeps words longer than three runes.
func longWords(text string) []string {
	var out []string
	for _, w := range strings.Fields(text) {
		if utf8.RuneCountInString(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}
