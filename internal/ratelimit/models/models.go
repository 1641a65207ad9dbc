package models

import (
	"strings"
	"time"
)

// Result reports the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// SanitizeKeySegment escapes delimiter characters in rate limit key
// segments so a user-controlled identifier containing ':' cannot
// collide with an adjacent bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
