package availability

import (
	"testing"
	"time"

	"github.com/example/smart-scheduler/internal/interval"
)

func weekdayHours(start, end ClockTime) map[time.Weekday]DayWindow {
	hours := make(map[time.Weekday]DayWindow)
	for day := time.Monday; day <= time.Friday; day++ {
		hours[day] = DayWindow{Start: start, End: end}
	}
	return hours
}

func utcPrefs(buffer int) Preferences {
	return Preferences{
		Timezone:      "UTC",
		BufferMinutes: buffer,
		WorkingHours:  weekdayHours(ClockTime{Hour: 9}, ClockTime{Hour: 17}),
	}
}

// 2024-03-14 is a Thursday.
func day(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	return time.Date(2024, 3, 14, hour, minute, 0, 0, time.UTC)
}

func TestFreeIntervalsPlainWorkday(t *testing.T) {
	t.Parallel()

	free, err := FreeIntervals(utcPrefs(0), nil, day(t, 0, 0), day(t, 23, 59))
	if err != nil {
		t.Fatalf("FreeIntervals: %v", err)
	}

	want := []interval.Interval{{Start: day(t, 9, 0), End: day(t, 17, 0)}}
	assertIntervals(t, free, want)
}

func TestFreeIntervalsSubtractsBusyAndAppliesBuffer(t *testing.T) {
	t.Parallel()

	busy := []interval.Interval{{Start: day(t, 12, 0), End: day(t, 13, 0)}}
	free, err := FreeIntervals(utcPrefs(15), busy, day(t, 0, 0), day(t, 23, 59))
	if err != nil {
		t.Fatalf("FreeIntervals: %v", err)
	}

	want := []interval.Interval{
		{Start: day(t, 9, 15), End: day(t, 11, 45)},
		{Start: day(t, 13, 15), End: day(t, 16, 45)},
	}
	assertIntervals(t, free, want)
}

func TestFreeIntervalsFullyBookedDay(t *testing.T) {
	t.Parallel()

	busy := []interval.Interval{{Start: day(t, 9, 0), End: day(t, 17, 0)}}
	free, err := FreeIntervals(utcPrefs(0), busy, day(t, 0, 0), day(t, 23, 59))
	if err != nil {
		t.Fatalf("FreeIntervals: %v", err)
	}
	if len(free) != 0 {
		t.Fatalf("expected no free time, got %v", free)
	}
}

func TestFreeIntervalsSkipsWeekend(t *testing.T) {
	t.Parallel()

	// 2024-03-16 is a Saturday.
	saturday := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
	free, err := FreeIntervals(utcPrefs(0), nil, saturday, saturday.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("FreeIntervals: %v", err)
	}
	if len(free) != 0 {
		t.Fatalf("expected no window on Saturday, got %v", free)
	}
}

func TestFreeIntervalsClipsToRange(t *testing.T) {
	t.Parallel()

	free, err := FreeIntervals(utcPrefs(0), nil, day(t, 10, 0), day(t, 12, 0))
	if err != nil {
		t.Fatalf("FreeIntervals: %v", err)
	}
	assertIntervals(t, free, []interval.Interval{{Start: day(t, 10, 0), End: day(t, 12, 0)}})
}

func TestFreeIntervalsAcrossSpringForward(t *testing.T) {
	t.Parallel()

	prefs := Preferences{
		Timezone:     "America/New_York",
		WorkingHours: map[time.Weekday]DayWindow{time.Sunday: {Start: ClockTime{Hour: 9}, End: ClockTime{Hour: 17}}},
	}

	// 2024-03-10 is the US spring-forward Sunday: EST becomes EDT at 02:00.
	rangeStart := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	free, err := FreeIntervals(prefs, nil, rangeStart, rangeStart.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("FreeIntervals: %v", err)
	}

	// 09:00 EDT == 13:00 UTC after the transition.
	want := []interval.Interval{{
		Start: time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 10, 21, 0, 0, 0, time.UTC),
	}}
	assertIntervals(t, free, want)
}

func TestFreeIntervalsInvalidRange(t *testing.T) {
	t.Parallel()

	if _, err := FreeIntervals(utcPrefs(0), nil, day(t, 12, 0), day(t, 10, 0)); err != ErrInvalidRange {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestWorkdayMidpoint(t *testing.T) {
	t.Parallel()

	mid, ok := WorkdayMidpoint(utcPrefs(0), day(t, 10, 0))
	if !ok {
		t.Fatal("expected midpoint for a workday")
	}
	if want := day(t, 13, 0); !mid.Equal(want) {
		t.Fatalf("midpoint = %v, want %v", mid, want)
	}

	sunday := time.Date(2024, 3, 17, 10, 0, 0, 0, time.UTC)
	if _, ok := WorkdayMidpoint(utcPrefs(0), sunday); ok {
		t.Fatal("expected no midpoint on Sunday")
	}
}

func TestIdealWindow(t *testing.T) {
	t.Parallel()

	prefs := utcPrefs(0)
	prefs.IdealHours = &DayWindow{Start: ClockTime{Hour: 10}, End: ClockTime{Hour: 12}}

	window, ok := IdealWindow(prefs, day(t, 15, 0))
	if !ok {
		t.Fatal("expected ideal window")
	}
	assertIntervals(t, []interval.Interval{window}, []interval.Interval{{Start: day(t, 10, 0), End: day(t, 12, 0)}})

	prefs.IdealHours = nil
	if _, ok := IdealWindow(prefs, day(t, 15, 0)); ok {
		t.Fatal("expected no ideal window when unset")
	}
}

func TestPreferencesProblems(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		prefs Preferences
		field string
	}{
		{"missing timezone", Preferences{WorkingHours: weekdayHours(ClockTime{Hour: 9}, ClockTime{Hour: 17})}, "timezone"},
		{"bogus timezone", Preferences{Timezone: "Mars/Olympus", WorkingHours: weekdayHours(ClockTime{Hour: 9}, ClockTime{Hour: 17})}, "timezone"},
		{"negative buffer", Preferences{Timezone: "UTC", BufferMinutes: -5, WorkingHours: weekdayHours(ClockTime{Hour: 9}, ClockTime{Hour: 17})}, "buffer_minutes"},
		{"empty working hours", Preferences{Timezone: "UTC"}, "working_hours"},
		{
			"inverted window",
			Preferences{Timezone: "UTC", WorkingHours: map[time.Weekday]DayWindow{time.Monday: {Start: ClockTime{Hour: 17}, End: ClockTime{Hour: 9}}}},
			"working_hours.monday",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			problems := tc.prefs.Problems()
			if _, ok := problems[tc.field]; !ok {
				t.Fatalf("expected problem on %q, got %v", tc.field, problems)
			}
		})
	}

	if problems := utcPrefs(10).Problems(); len(problems) != 0 {
		t.Fatalf("expected valid preferences, got %v", problems)
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	c, err := ParseClock("09:30")
	if err != nil {
		t.Fatalf("ParseClock: %v", err)
	}
	if c.Hour != 9 || c.Minute != 30 {
		t.Fatalf("ParseClock = %+v", c)
	}

	for _, bad := range []string{"25:00", "10:75", "abc", ""} {
		if _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func assertIntervals(t *testing.T, got, want []interval.Interval) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d intervals, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) {
			t.Fatalf("interval %d = %v, want %v", i, got[i], want[i])
		}
	}
}
