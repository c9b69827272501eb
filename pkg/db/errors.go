package db

import "strings"

var uniqueViolationMarkers = []string{
	"duplicate key value",      // postgres
	"UNIQUE constraint failed", // sqlite
}

// IsUniqueViolation reports whether err is a unique constraint violation. When
// constraintName is provided, the helper only looks for that constraint in the message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	for _, marker := range uniqueViolationMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
