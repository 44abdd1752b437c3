package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day format used across the pipeline and the
// content source ("06/25/2025"). No time component.
const DateLayout = "01/02/2006"

// ResolveDate validates an explicit MM/DD/YYYY argument or, when it is
// empty, defaults to yesterday relative to now. The result is resolved
// once at the entry boundary and threaded through every stage.
func ResolveDate(arg string, now time.Time) (string, error) {
	if arg == "" {
		return now.AddDate(0, 0, -1).Format(DateLayout), nil
	}
	parsed, err := time.Parse(DateLayout, arg)
	if err != nil {
		return "", fmt.Errorf("invalid date %q (want MM/DD/YYYY): %w", arg, err)
	}
	return parsed.Format(DateLayout), nil
}

// ParseDate converts a pipeline date string into a UTC day.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return parsed.UTC(), nil
}
