package strings

import (
	"strings"
)

// DefaultMaxLen is the default maximum length of values in formatted output.
const DefaultMaxLen = 60

// MinTruncateLen is the minimum maxLen value for Truncate.
// Values smaller than this would not leave room for meaningful content plus "...".
const MinTruncateLen = 4

// MaxLabelValueLen is the Kubernetes limit for label values.
const MaxLabelValueLen = 63

// Truncate truncates a string to maxLen characters and ensures single-line output.
// It collapses whitespace, including newlines, into single spaces and adds
// "..." if truncated. Truncation operates on runes.
//
// If maxLen is less than MinTruncateLen (4), it is clamped to MinTruncateLen to ensure
// there is room for at least one character plus "...".
func Truncate(s string, maxLen int) string {
	// Clamp maxLen to minimum value to prevent panic from negative slice index
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

// LabelValue turns s into a valid label value: characters other than
// alphanumerics, '-', '_' and '.' become '-', the result is cut to
// MaxLabelValueLen and must begin and end with an alphanumeric character.
func LabelValue(s string) string {
	b := []byte(s)
	for i, c := range b {
		if !isAlphanumeric(c) && c != '-' && c != '_' && c != '.' {
			b[i] = '-'
		}
	}
	if len(b) > MaxLabelValueLen {
		b = b[:MaxLabelValueLen]
	}
	start, end := 0, len(b)
	for start < end && !isAlphanumeric(b[start]) {
		start++
	}
	for end > start && !isAlphanumeric(b[end-1]) {
		end--
	}
	return string(b[start:end])
}

func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
