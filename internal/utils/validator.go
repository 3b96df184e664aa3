package utils

import "strings"

// SanitizeEmail sanitizes an email address
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeUserName returns the stored form of a user name
func NormalizeUserName(userName string) string {
	return strings.ToLower(strings.TrimSpace(userName))
}

// IsBlank reports whether any of the values is empty after trimming
func IsBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
