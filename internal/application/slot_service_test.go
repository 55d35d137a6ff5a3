package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/smart-scheduler/internal/interval"
	"github.com/example/smart-scheduler/internal/slotting"
)

type slotServiceFixture struct {
	service      *SlotService
	participants *stubParticipantRepository
	busy         *stubBusyStore
	events       *stubEventRepository
}

func newSlotServiceFixture(t *testing.T, participants *stubParticipantRepository, events *stubEventRepository) slotServiceFixture {
	t.Helper()
	busy := newStubBusyStore()
	now := fixedNow(time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC))
	cache := NewFreeTimeCache(time.Minute, 16, now)
	service := NewSlotService(
		participants,
		busy,
		events,
		slotting.NewGenerator(30*time.Minute, 50),
		slotting.NewScorer(slotting.DefaultWeights()),
		cache,
		nil,
	)
	return slotServiceFixture{service: service, participants: participants, busy: busy, events: events}
}

func searchParams() FindSlotsParams {
	return FindSlotsParams{
		OrganizerID:     "alice",
		ParticipantIDs:  []string{"bob"},
		DurationMinutes: 60,
		RangeStart:      time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), // a Thursday
		RangeEnd:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestFindSlotsValidation(t *testing.T) {
	t.Parallel()

	fixture := newSlotServiceFixture(t, newStubParticipantRepository(), newStubEventRepository())

	cases := []struct {
		name   string
		mutate func(*FindSlotsParams)
		field  string
	}{
		{name: "missing organizer", mutate: func(p *FindSlotsParams) { p.OrganizerID = "" }, field: "organizer_id"},
		{name: "no participants", mutate: func(p *FindSlotsParams) { p.ParticipantIDs = nil }, field: "participants"},
		{name: "zero duration", mutate: func(p *FindSlotsParams) { p.DurationMinutes = 0 }, field: "duration_minutes"},
		{name: "negative duration", mutate: func(p *FindSlotsParams) { p.DurationMinutes = -30 }, field: "duration_minutes"},
		{name: "missing range start", mutate: func(p *FindSlotsParams) { p.RangeStart = time.Time{} }, field: "range.from"},
		{name: "missing range end", mutate: func(p *FindSlotsParams) { p.RangeEnd = time.Time{} }, field: "range.to"},
		{name: "inverted range", mutate: func(p *FindSlotsParams) { p.RangeStart, p.RangeEnd = p.RangeEnd, p.RangeStart }, field: "range"},
		{name: "oversized range", mutate: func(p *FindSlotsParams) { p.RangeEnd = p.RangeStart.AddDate(1, 0, 0) }, field: "range"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			params := searchParams()
			tc.mutate(&params)

			_, err := fixture.service.FindSlots(context.Background(), params)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tc.field]; !ok {
				t.Fatalf("expected error on %q, got %v", tc.field, vErr.FieldErrors)
			}
		})
	}
}

func TestFindSlotsUnknownParticipant(t *testing.T) {
	t.Parallel()

	fixture := newSlotServiceFixture(t, newStubParticipantRepository(testServiceParticipant("alice")), newStubEventRepository())

	params := searchParams()
	_, err := fixture.service.FindSlots(context.Background(), params)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := vErr.FieldErrors["participants"]; !ok {
		t.Fatalf("expected error on participants, got %v", vErr.FieldErrors)
	}
}

func TestFindSlotsRespectsBusyTime(t *testing.T) {
	t.Parallel()

	participants := newStubParticipantRepository(testServiceParticipant("alice"), testServiceParticipant("bob"))
	fixture := newSlotServiceFixture(t, participants, newStubEventRepository())

	busyBlock := interval.Interval{
		Start: time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	fixture.busy.busy["bob"] = []interval.Interval{busyBlock}

	candidates, err := fixture.service.FindSlots(context.Background(), searchParams())
	if err != nil {
		t.Fatalf("find slots: %v", err)
	}
	if len(candidates) == 0 {
		t.Fatalf("expected candidates within the shared working day")
	}

	duration := time.Hour
	for _, c := range candidates {
		if got := c.End.Sub(c.Start); got != duration {
			t.Fatalf("candidate duration = %v, want %v", got, duration)
		}
		if c.Score < 0 || c.Score > 1 {
			t.Fatalf("score %f out of [0,1]", c.Score)
		}
		slot := interval.Interval{Start: c.Start, End: c.End}
		if slot.Overlaps(busyBlock) {
			t.Fatalf("candidate %v overlaps busy block", slot)
		}
	}

	for i := 1; i < len(candidates); i++ {
		if candidates[i].Score > candidates[i-1].Score {
			t.Fatalf("candidates not ranked best-first at %d", i)
		}
	}
}

func TestFindSlotsEmptyIntersection(t *testing.T) {
	t.Parallel()

	tokyo := testServiceParticipant("alice")
	tokyo.Preferences = weekdayPreferences("Asia/Tokyo")
	honolulu := testServiceParticipant("bob")
	honolulu.Preferences = weekdayPreferences("Pacific/Honolulu")
	participants := newStubParticipantRepository(tokyo, honolulu)
	fixture := newSlotServiceFixture(t, participants, newStubEventRepository())

	// Tokyo 09:00-17:00 is 00:00-08:00 UTC; Honolulu 09:00-17:00 is
	// 19:00-03:00 UTC. Overlap is at most 00:00-03:00 UTC, so a narrow
	// afternoon range yields nothing.
	params := searchParams()
	params.RangeStart = time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	params.RangeEnd = time.Date(2024, 3, 14, 18, 0, 0, 0, time.UTC)

	candidates, err := fixture.service.FindSlots(context.Background(), params)
	if err != nil {
		t.Fatalf("an empty intersection is not an error, got %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %+v", candidates)
	}
}

func TestFindSlotsFiltersConfirmedEvents(t *testing.T) {
	t.Parallel()

	participants := newStubParticipantRepository(testServiceParticipant("alice"), testServiceParticipant("bob"))
	blocker := Event{
		ID:             "ev-blocker",
		OrganizerID:    "carol",
		Title:          "All hands",
		Start:          time.Date(2024, 3, 14, 13, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC),
		Status:         EventStatusConfirmed,
		ParticipantIDs: []string{"bob", "carol"},
	}
	fixture := newSlotServiceFixture(t, participants, newStubEventRepository(blocker))

	candidates, err := fixture.service.FindSlots(context.Background(), searchParams())
	if err != nil {
		t.Fatalf("find slots: %v", err)
	}

	window := interval.Interval{Start: blocker.Start, End: blocker.End}
	for _, c := range candidates {
		slot := interval.Interval{Start: c.Start, End: c.End}
		if slot.Overlaps(window) {
			t.Fatalf("candidate %v overlaps confirmed event", slot)
		}
	}
}

func TestFindSlotsHonorsMaxResults(t *testing.T) {
	t.Parallel()

	participants := newStubParticipantRepository(testServiceParticipant("alice"), testServiceParticipant("bob"))
	fixture := newSlotServiceFixture(t, participants, newStubEventRepository())

	params := searchParams()
	params.MaxResults = 3

	candidates, err := fixture.service.FindSlots(context.Background(), params)
	if err != nil {
		t.Fatalf("find slots: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("candidates = %d, want 3", len(candidates))
	}
}

func TestFindSlotsDeterministic(t *testing.T) {
	t.Parallel()

	participants := newStubParticipantRepository(testServiceParticipant("alice"), testServiceParticipant("bob"))
	fixture := newSlotServiceFixture(t, participants, newStubEventRepository())

	first, err := fixture.service.FindSlots(context.Background(), searchParams())
	if err != nil {
		t.Fatalf("find slots: %v", err)
	}
	second, err := fixture.service.FindSlots(context.Background(), searchParams())
	if err != nil {
		t.Fatalf("find slots: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("result sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Start.Equal(second[i].Start) || first[i].Score != second[i].Score {
			t.Fatalf("results diverge at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestFindSlotsUsesFreeTimeCache(t *testing.T) {
	t.Parallel()

	participants := newStubParticipantRepository(testServiceParticipant("alice"), testServiceParticipant("bob"))
	fixture := newSlotServiceFixture(t, participants, newStubEventRepository())

	if _, err := fixture.service.FindSlots(context.Background(), searchParams()); err != nil {
		t.Fatalf("find slots: %v", err)
	}
	listed := fixture.busy.listCalls
	if listed == 0 {
		t.Fatalf("first search must read busy intervals")
	}

	if _, err := fixture.service.FindSlots(context.Background(), searchParams()); err != nil {
		t.Fatalf("find slots: %v", err)
	}
	if fixture.busy.listCalls != listed {
		t.Fatalf("second identical search must be served from cache, reads went %d -> %d", listed, fixture.busy.listCalls)
	}
}

func TestAvailabilityReturnsBufferedFreeTime(t *testing.T) {
	t.Parallel()

	buffered := testServiceParticipant("alice")
	buffered.Preferences.BufferMinutes = 30
	participants := newStubParticipantRepository(buffered)
	fixture := newSlotServiceFixture(t, participants, newStubEventRepository())

	free, err := fixture.service.Availability(context.Background(), AvailabilityParams{
		ParticipantID: "alice",
		RangeStart:    time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		RangeEnd:      time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(free) != 1 {
		t.Fatalf("free intervals = %+v", free)
	}

	wantStart := time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 3, 14, 16, 30, 0, 0, time.UTC)
	if !free[0].Start.Equal(wantStart) || !free[0].End.Equal(wantEnd) {
		t.Fatalf("buffered window = %v, want [%v, %v)", free[0], wantStart, wantEnd)
	}
}
