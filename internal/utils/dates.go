package utils

import (
	"time"
)

// ParseDate parses an ISO 8601 date, accepting YYYY-MM-DD or RFC3339.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// FormatDate renders a time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatTimestamp renders a time as RFC3339.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}
