package validators

import "strings"

// SanitizeString collapses runs of whitespace and keeps at most maxLen
// runes, so accented names are never cut mid-character.
func SanitizeString(input string, maxLen int) string {
	clean := strings.Join(strings.Fields(input), " ")
	if maxLen <= 0 {
		return clean
	}
	if runes := []rune(clean); len(runes) > maxLen {
		return strings.TrimSpace(string(runes[:maxLen]))
	}
	return clean
}
