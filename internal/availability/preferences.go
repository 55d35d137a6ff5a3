// Package availability models per-participant scheduling preferences and
// computes buffer-adjusted free time over a date range.
package availability

import (
	"fmt"
	"time"
)

// ClockTime is a wall-clock instant within a day, independent of date and
// timezone.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses a "HH:MM" string into a ClockTime.
func ParseClock(value string) (ClockTime, error) {
	var c ClockTime
	if _, err := fmt.Sscanf(value, "%d:%d", &c.Hour, &c.Minute); err != nil {
		return ClockTime{}, fmt.Errorf("availability: invalid clock value %q", value)
	}
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return ClockTime{}, fmt.Errorf("availability: clock value %q out of range", value)
	}
	return c, nil
}

// String renders the clock time as "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes returns the offset from local midnight in minutes.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Before reports whether c precedes other within the same day.
func (c ClockTime) Before(other ClockTime) bool {
	return c.Minutes() < other.Minutes()
}

// DayWindow is a local-time window within a single day.
type DayWindow struct {
	Start ClockTime
	End   ClockTime
}

// Valid reports whether the window has positive length.
func (w DayWindow) Valid() bool {
	return w.Start.Before(w.End)
}

// Preferences captures the owner-managed scheduling attributes of a
// participant: timezone, working hours per weekday, the idle buffer required
// around meetings, and an optional preferred window for the scoring engine.
type Preferences struct {
	Timezone      string
	BufferMinutes int
	WorkingHours  map[time.Weekday]DayWindow
	IdealHours    *DayWindow
}

// Problems validates the preferences and returns a field keyed message map.
// An empty map means the preferences are well formed. Callers surface the
// entries as validation errors without mutating stored state.
func (p Preferences) Problems() map[string]string {
	problems := make(map[string]string)

	if p.Timezone == "" {
		problems["timezone"] = "timezone is required"
	} else if _, err := time.LoadLocation(p.Timezone); err != nil {
		problems["timezone"] = "timezone must be a valid IANA zone name"
	}

	if p.BufferMinutes < 0 {
		problems["buffer_minutes"] = "buffer must not be negative"
	}

	if len(p.WorkingHours) == 0 {
		problems["working_hours"] = "at least one weekday window is required"
	}
	for day, window := range p.WorkingHours {
		if !window.Valid() {
			problems[fmt.Sprintf("working_hours.%s", weekdayKey(day))] = "start must be before end"
		}
	}

	if p.IdealHours != nil && !p.IdealHours.Valid() {
		problems["ideal_hours"] = "start must be before end"
	}

	return problems
}

// Location resolves the participant timezone. Preferences must have been
// validated beforehand.
func (p Preferences) Location() (*time.Location, error) {
	return time.LoadLocation(p.Timezone)
}

// Buffer returns the configured buffer as a duration.
func (p Preferences) Buffer() time.Duration {
	if p.BufferMinutes <= 0 {
		return 0
	}
	return time.Duration(p.BufferMinutes) * time.Minute
}

func weekdayKey(day time.Weekday) string {
	switch day {
	case time.Sunday:
		return "sunday"
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	}
	return "unknown"
}

// ParseWeekday maps a lowercase weekday name to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	for day := time.Sunday; day <= time.Saturday; day++ {
		if weekdayKey(day) == name {
			return day, nil
		}
	}
	return time.Sunday, fmt.Errorf("availability: unknown weekday %q", name)
}

// WeekdayKey renders a weekday as its lowercase wire name.
func WeekdayKey(day time.Weekday) string {
	return weekdayKey(day)
}
