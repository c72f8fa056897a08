package notify

import (
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const ellipsis = "..."

// Truncate normalizes s to NFC and cuts it to at most limit runes,
// appending an ellipsis when something was cut.
func Truncate(s string, limit int) string {
	s = norm.NFC.String(s)
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}

	cut := 0
	for i := range s {
		if cut == limit {
			return s[:i] + ellipsis
		}
		cut++
	}
	return s
}
