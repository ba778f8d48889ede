package strings

import (
	"strings"
)

// DefaultURLMaxLen is the default maximum length for URLs in formatted output.
const DefaultURLMaxLen = 60

// MinTruncateLen is the minimum maxLen value for Truncate.
// Values smaller than this would not leave room for meaningful content plus "...".
const MinTruncateLen = 4

// maskVisible is the number of leading characters Mask keeps.
const maskVisible = 4

// Truncate truncates a string to maxLen characters and ensures single-line output.
// It collapses whitespace into single spaces and adds "..." if truncated.
//
// The function operates on runes rather than bytes, so multi-byte characters
// are never split. maxLen is clamped to MinTruncateLen.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// Mask hides all but the first few characters of a secret for display.
// Strings too short to keep a prefix are fully masked.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	runes := []rune(secret)
	if len(runes) <= maskVisible*2 {
		return "****"
	}
	return string(runes[:maskVisible]) + "****"
}
