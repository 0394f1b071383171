package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxFutureSkew is how far into the future a record timestamp may point
// before validation rejects it. Covers clock drift between the OS focus
// feed and the local clock.
const MaxFutureSkew = time.Hour

// ParseTimestamp parses an RFC3339 timestamp string
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// FormatTimestamp formats a time as RFC3339 for persistence and filenames
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

// BackupSuffix formats a time for timestamp-suffixed backup filenames.
// Colons are not portable in filenames, so a compact layout is used.
func BackupSuffix(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// IsTooFarInFuture reports whether t lies beyond the accepted clock skew
func IsTooFarInFuture(t time.Time, now time.Time) bool {
	return t.After(now.Add(MaxFutureSkew))
}

// ParseLookback parses a lookback duration like "90m", "12h", "7d" or
// "2w". Plain Go durations also work.
func ParseLookback(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	if strings.HasSuffix(s, "d") || strings.HasSuffix(s, "w") {
		value, err := strconv.Atoi(s[:len(s)-1])
		if err != nil || value < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		if strings.HasSuffix(s, "w") {
			return time.Duration(value) * 7 * 24 * time.Hour, nil
		}
		return time.Duration(value) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q (use e.g. 90m, 12h, 7d, 2w)", s)
	}
	return d, nil
}

// FormatDuration renders a duration as a compact human string for logs
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
