package capacity

import (
	"fmt"
	"time"
)

// ClockError reports a malformed HH:mm time string. It is a caller bug,
// surfaced as a typed error rather than folded into scheduling outcomes.
type ClockError struct {
	Value string
}

func (e *ClockError) Error() string {
	return fmt.Sprintf("malformed clock time %q (want HH:mm)", e.Value)
}

// ParseClock converts an HH:mm string to minutes since midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%2d:%2d", &h, &m); err != nil {
		return 0, &ClockError{Value: s}
	}
	if len(s) != 5 || s[2] != ':' || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, &ClockError{Value: s}
	}
	return h*60 + m, nil
}

// FormatClock converts minutes since midnight back to an HH:mm string.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ClockAt anchors minutes-since-midnight onto a calendar date.
func ClockAt(date time.Time, minutes int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()).
		Add(time.Duration(minutes) * time.Minute)
}
