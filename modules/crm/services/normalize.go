package services

import (
	"strings"
	"unicode"
)

// normalizeOptional trims the value and maps empty optional strings to null.
func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// stripWhitespace removes every whitespace rune, used for client numbers that
// arrive copy-pasted with interior spaces.
func stripWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
