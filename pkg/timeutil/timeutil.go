// Package timeutil provides UTC day arithmetic for the lifecycle engine.
// Enrollment durations and refund tiers are defined in whole elapsed days, so
// every duration in the engine goes through these helpers rather than ad hoc
// division. No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// Day is the length of one whole day.
const Day = 24 * time.Hour

// Now returns the current time in UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// StartOfDay returns the start of the day (00:00:00) in UTC.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in UTC.
func EndOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, 999999999, time.UTC)
}

// WholeDaysBetween returns the number of whole days elapsed between from and
// to. Partial days are truncated, and a negative span returns 0: an
// enrollment can never have negative elapsed time.
func WholeDaysBetween(from, to time.Time) int {
	days := int(to.UTC().Sub(from.UTC()) / Day)
	if days < 0 {
		return 0
	}
	return days
}

// AddDays returns the time advanced by n whole days.
func AddDays(t time.Time, n int) time.Time {
	return t.UTC().Add(time.Duration(n) * Day)
}

// Ratio returns part/total as a float in [0, 1], clamped. Returns 0 when
// total is not positive.
func Ratio(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	r := float64(part) / float64(total)
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

// FormatDate formats a time as "2006-01-02" in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// FormatDateTime formats a time as "2006-01-02 15:04:05" in UTC.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// FormatDuration formats a duration in a human-readable way.
// Examples: "2d 3h", "5h 30m", "45m", "30s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d / Day)
	hours := int(d % Day / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	seconds := int(d % time.Minute / time.Second)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// IsSameDay checks if two times fall on the same UTC calendar day.
func IsSameDay(t1, t2 time.Time) bool {
	u1, u2 := t1.UTC(), t2.UTC()
	return u1.Year() == u2.Year() && u1.Month() == u2.Month() && u1.Day() == u2.Day()
}
