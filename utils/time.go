// Package utils provides small time helpers shared across the planner
// services.
package utils //nolint:revive // utils is a common and acceptable package name

import "time"

// GetUTCString formats a time.Time to the ENTSO-E API format YYYYMMDDHHmm.
func GetUTCString(t time.Time) string {
	return t.UTC().Format("200601021504")
}

// TruncateToHour floors a time to the start of its hour.
func TruncateToHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}
