package validate

import (
	"strings"
	"unicode/utf8"
)

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// Text reports whether value is non-blank and at most maxRunes runes long
// after trimming. maxRunes <= 0 means no upper bound.
func Text(value string, maxRunes int) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	return maxRunes <= 0 || utf8.RuneCountInString(trimmed) <= maxRunes
}
