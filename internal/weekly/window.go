// Package weekly aggregates tasks and credo logs over a Monday..Sunday window.
package weekly

import (
	"fmt"
	"time"

	"github.com/julianstephens/studylit/internal/constants"
)

// Window is the 7-day span starting at a Monday, UTC midnight.
type Window struct {
	Start time.Time
}

// WeekWindow returns the window containing ref's UTC calendar date.
func WeekWindow(ref time.Time) Window {
	r := ref.UTC()
	day := time.Date(r.Year(), r.Month(), r.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return Window{Start: day.AddDate(0, 0, -offset)}
}

// ParseWeekRef resolves a YYYY-MM-DD reference date to its window.
func ParseWeekRef(day string) (Window, error) {
	t, err := time.Parse(constants.DateFormat, day)
	if err != nil {
		return Window{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", day, err)
	}
	return WeekWindow(t), nil
}

// End returns the Sunday at midnight, the last day inside the window.
func (w Window) End() time.Time {
	return w.Start.AddDate(0, 0, constants.DaysPerWeek-1)
}

// Until returns the exclusive upper bound, the following Monday.
func (w Window) Until() time.Time {
	return w.Start.AddDate(0, 0, constants.DaysPerWeek)
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(w.Start) && t.Before(w.Until())
}

// ContainsDay reports whether a YYYY-MM-DD day falls inside the window.
func (w Window) ContainsDay(day string) bool {
	return day >= w.StartDay() && day <= w.EndDay()
}

func (w Window) StartDay() string { return w.Start.Format(constants.DateFormat) }
func (w Window) EndDay() string   { return w.End().Format(constants.DateFormat) }

// Days returns the seven days of the window, Monday first.
func (w Window) Days() []time.Time {
	days := make([]time.Time, constants.DaysPerWeek)
	for i := range days {
		days[i] = w.Start.AddDate(0, 0, i)
	}
	return days
}

// Previous returns the window one week earlier.
func (w Window) Previous() Window {
	return Window{Start: w.Start.AddDate(0, 0, -constants.DaysPerWeek)}
}

// dayLabels are indexed from Monday.
var dayLabels = [constants.DaysPerWeek]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func dayIndex(w Window, t time.Time) (int, bool) {
	if !w.Contains(t) {
		return 0, false
	}
	return int(t.UTC().Sub(w.Start) / (24 * time.Hour)), true
}
