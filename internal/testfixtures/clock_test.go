package testfixtures

import (
	"testing"
	"time"
)

func TestClockSetAndAdvance(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	clock := NewClock(start)

	if !clock.Now().Equal(start) {
		t.Fatalf("clock starts at %v, want %v", clock.Now(), start)
	}

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("Advance returned %v", updated)
	}

	clock.Set(start.Add(2 * time.Hour))
	if got := clock.Current(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("Current after Set = %v", got)
	}
}

func TestClockNowFunc(t *testing.T) {
	t.Parallel()

	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("zero start should use the reference time, got %v", clock.Now())
	}

	nowFn := clock.NowFunc()
	clock.Advance(time.Minute)
	if got := nowFn(); !got.Equal(clock.Current()) {
		t.Fatalf("NowFunc lagged behind the clock: %v vs %v", got, clock.Current())
	}

	var nilClock *Clock
	if nilClock.NowFunc()().IsZero() {
		t.Fatalf("nil clock must fall back to wall time")
	}
}
