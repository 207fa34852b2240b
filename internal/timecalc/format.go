// Package timecalc implements timer accounting and duration formatting.
package timecalc

import (
	"fmt"
	"math"
	"time"
)

// hms splits a non-negative number of seconds into hours, minutes and seconds.
func hms(seconds int64) (h, m, s int64) {
	if seconds < 0 {
		seconds = 0
	}
	return seconds / 3600, seconds % 3600 / 60, seconds % 60
}

// FormatDuration renders seconds at minute precision: "1h 40m", "45m",
// or "30s" below one minute.
func FormatDuration(seconds int64) string {
	h, m, s := hms(seconds)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatDurationHHMMSS renders seconds as a clock reading, e.g. "01:02:03".
func FormatDurationHHMMSS(seconds int64) string {
	h, m, s := hms(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatElapsed keeps every unit from the largest non-zero one down,
// e.g. "1h 0m 5s".
func FormatElapsed(seconds int64) string {
	h, m, s := hms(seconds)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// StartOfDay returns midnight at the beginning of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last whole second of t's day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Second)
}

// floorSeconds converts d to whole seconds, rounding towards negative infinity.
func floorSeconds(d time.Duration) int64 {
	return int64(math.Floor(d.Seconds()))
}
