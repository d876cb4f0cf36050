package textnorm

import (
	"strings"
	"unicode"
)

// Normalize produces the canonical form of source account text used for
// precedent matching: lower-cased, punctuation and symbols dropped,
// whitespace runs collapsed to single spaces, trimmed.
// Punctuation separates tokens rather than joining them, so "Cash-in-Bank"
// and "Cash in Bank" normalize identically.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}
