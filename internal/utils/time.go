package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/studylit/internal/constants"
)

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// ParseDateInLocation parses a date string (YYYY-MM-DD) in the specified timezone.
func ParseDateInLocation(dateStr string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, dateStr)
	if err != nil {
		return time.Time{}, err
	}
	// Return the date at midnight in the specified timezone
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}

// CombineDateAndTime combines a date string (YYYY-MM-DD) and time string (HH:MM)
// into a single time.Time in the specified timezone.
func CombineDateAndTime(dateStr, timeStr string, loc *time.Location) (time.Time, error) {
	date, err := time.Parse(constants.DateFormat, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %w", err)
	}

	timeOfDay, err := time.Parse(constants.TimeFormat, timeStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time format: %w", err)
	}

	return time.Date(
		date.Year(), date.Month(), date.Day(),
		timeOfDay.Hour(), timeOfDay.Minute(), 0, 0,
		loc,
	), nil
}

// ValidDay reports whether s is a calendar date in YYYY-MM-DD form.
func ValidDay(s string) bool {
	_, err := time.Parse(constants.DateFormat, s)
	return err == nil
}

// ParseDue reads a due time typed by a user. It accepts RFC 3339, "YYYY-MM-DD
// HH:MM" and a bare "YYYY-MM-DD" (midnight). Due dates are calendar days, so
// the last two are anchored in UTC and never shifted by the local timezone.
func ParseDue(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if date, clock, ok := strings.Cut(s, " "); ok {
		t, err := CombineDateAndTime(date, strings.TrimSpace(clock), time.UTC)
		if err != nil {
			return time.Time{}, err
		}
		return t, nil
	}
	t, err := ParseDateInLocation(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due %q: use YYYY-MM-DD, \"YYYY-MM-DD HH:MM\" or RFC 3339", s)
	}
	return t, nil
}

// FormatSeconds renders a duration in seconds as "1h 05m", "12m 30s" or "45s".
func FormatSeconds(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	if timezone == "" || timezone == "Local" {
		return true
	}
	_, err := time.LoadLocation(timezone)
	return err == nil
}
