package validators

import (
	"strings"
	"unicode"
)

// SanitizeString drops control characters, collapses whitespace runs, and truncates to
// maxLen runes. Receipt references and preset names pass through here before they
// reach the ERP.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))
	pendingSpace := false
	runes := 0
	for _, c := range input {
		if unicode.IsSpace(c) {
			pendingSpace = b.Len() > 0
			continue
		}
		if unicode.IsControl(c) {
			continue
		}
		if pendingSpace {
			if maxLen > 0 && runes+1 >= maxLen {
				break
			}
			b.WriteRune(' ')
			runes++
			pendingSpace = false
		}
		if maxLen > 0 && runes >= maxLen {
			break
		}
		b.WriteRune(c)
		runes++
	}
	return b.String()
}
