package utils

import (
	"fmt"
	"time"
)

// FormatRoundedUnit renders a duration in its largest whole unit: 45s, 12m, 3h, 2d
func FormatRoundedUnit(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh", seconds/3600)
	}
	return fmt.Sprintf("%dd", seconds/86400)
}

// FormatAge renders how long ago t was relative to now, e.g. "5m ago"
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return FormatRoundedUnit(int64(now.Sub(t).Seconds())) + " ago"
}
