package availability

import (
	"errors"
	"time"

	"github.com/example/smart-scheduler/internal/interval"
)

// ErrInvalidRange indicates the requested date range is empty or inverted.
var ErrInvalidRange = errors.New("availability: range end must be after range start")

// FreeIntervals computes the participant's buffer-adjusted free time within
// [rangeStart, rangeEnd).
//
// Per local calendar day the working-hours window is materialised in the
// participant's timezone (DST transitions resolve through local midnight
// reconstruction), converted to UTC, and clipped to the requested range. Busy
// intervals are subtracted and each surviving interval is shrunk by the buffer
// on both ends.
func FreeIntervals(prefs Preferences, busy []interval.Interval, rangeStart, rangeEnd time.Time) ([]interval.Interval, error) {
	if !rangeEnd.After(rangeStart) {
		return nil, ErrInvalidRange
	}

	loc, err := prefs.Location()
	if err != nil {
		return nil, err
	}

	windows := expandWorkingHours(prefs.WorkingHours, loc, rangeStart, rangeEnd)
	if len(windows) == 0 {
		return nil, nil
	}

	bounds := []interval.Interval{{Start: rangeStart.UTC(), End: rangeEnd.UTC()}}
	clipped := interval.Intersect(windows, bounds)
	free := interval.Subtract(clipped, busy)

	buffer := prefs.Buffer()
	if buffer == 0 {
		return free, nil
	}

	buffered := make([]interval.Interval, 0, len(free))
	for _, iv := range free {
		if shrunk := iv.Shrink(buffer); shrunk.Valid() {
			buffered = append(buffered, shrunk)
		}
	}
	if len(buffered) == 0 {
		return nil, nil
	}
	return buffered, nil
}

// WorkdayMidpoint returns the UTC midpoint of the working-hours window on the
// local day containing the given instant. The second result is false when the
// participant has no window on that weekday.
func WorkdayMidpoint(prefs Preferences, at time.Time) (time.Time, bool) {
	loc, err := prefs.Location()
	if err != nil {
		return time.Time{}, false
	}
	local := at.In(loc)
	window, ok := prefs.WorkingHours[local.Weekday()]
	if !ok || !window.Valid() {
		return time.Time{}, false
	}
	iv := windowOnDay(local, window, loc)
	mid := iv.Start.Add(iv.Duration() / 2)
	return mid, true
}

// IdealWindow returns the participant's preferred window on the local day
// containing the given instant, as a UTC interval.
func IdealWindow(prefs Preferences, at time.Time) (interval.Interval, bool) {
	if prefs.IdealHours == nil || !prefs.IdealHours.Valid() {
		return interval.Interval{}, false
	}
	loc, err := prefs.Location()
	if err != nil {
		return interval.Interval{}, false
	}
	return windowOnDay(at.In(loc), *prefs.IdealHours, loc), true
}

// expandWorkingHours walks local calendar days across the range and emits the
// configured weekday windows as UTC intervals. The walk starts one day early
// so a window already in progress at rangeStart is not lost.
func expandWorkingHours(hours map[time.Weekday]DayWindow, loc *time.Location, rangeStart, rangeEnd time.Time) []interval.Interval {
	if len(hours) == 0 {
		return nil
	}

	localStart := rangeStart.In(loc)
	day := time.Date(localStart.Year(), localStart.Month(), localStart.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -1)
	localEnd := rangeEnd.In(loc)

	var windows []interval.Interval
	for !day.After(localEnd) {
		if window, ok := hours[day.Weekday()]; ok && window.Valid() {
			windows = append(windows, windowOnDay(day, window, loc))
		}
		day = nextLocalDay(day, loc)
	}

	return interval.Normalize(windows)
}

func windowOnDay(day time.Time, window DayWindow, loc *time.Location) interval.Interval {
	y, m, d := day.Date()
	start := time.Date(y, m, d, window.Start.Hour, window.Start.Minute, 0, 0, loc)
	end := time.Date(y, m, d, window.End.Hour, window.End.Minute, 0, 0, loc)
	return interval.Interval{Start: start.UTC(), End: end.UTC()}
}

// nextLocalDay advances to the following local midnight. Adding 24h and
// reconstructing the date keeps the walk stable across DST transitions where
// a local day is 23 or 25 hours long.
func nextLocalDay(day time.Time, loc *time.Location) time.Time {
	next := day.Add(26 * time.Hour).In(loc)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, loc)
}
