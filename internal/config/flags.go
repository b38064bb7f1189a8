package config

import "strings"

// ParseBool coerces a string flag the way the test harness always has:
// "t" and "true", in any case, are true and everything else is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true":
		return true
	default:
		return false
	}
}

// FormatBool renders v in the form harness flags use by default.
func FormatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
