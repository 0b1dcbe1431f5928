package utils

import "strings"

// MaskSensitive masks sensitive values for logging, showing only a prefix
func MaskSensitive(s string, prefixLen int) string {
	if s == "" {
		return ""
	}

	prefix := ""
	value := s
	if strings.HasPrefix(s, "Bearer ") {
		prefix = "Bearer "
		value = s[7:]
	}

	if len(value) <= prefixLen {
		return prefix + value
	}

	return prefix + value[:prefixLen] + strings.Repeat("*", 8)
}

// MaskToken is a convenience wrapper for masking bearer tokens in log fields
func MaskToken(token string) string {
	return MaskSensitive(token, 6)
}
