package utils

import (
	"strings"
	"time"
)

// Now returns the current time in UTC timezone
func Now() time.Time {
	return time.Now().UTC()
}

// epochMillisThreshold separates second and millisecond epochs. Second values
// above it would fall after the year 33658.
const epochMillisThreshold = 1e12

// EpochToTime converts a unix epoch in seconds or milliseconds to UTC.
// Non-positive values yield the zero time.
func EpochToTime(epoch int64) time.Time {
	switch {
	case epoch <= 0:
		return time.Time{}
	case epoch > epochMillisThreshold:
		return time.UnixMilli(epoch).UTC()
	default:
		return time.Unix(epoch, 0).UTC()
	}
}

// FormatISO8601 formats a time.Time to ISO8601 format in UTC
func FormatISO8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

var flexibleLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseFlexibleTime parses ISO-8601 timestamps and plain dates, returning UTC.
// Values without a zone are read as UTC.
func ParseFlexibleTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range flexibleLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last representable instant of t's UTC day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
