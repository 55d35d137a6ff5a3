package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/smart-scheduler/internal/availability"
	"github.com/example/smart-scheduler/internal/interval"
	"github.com/example/smart-scheduler/internal/persistence"
)

func newParticipantServiceFixture(t *testing.T, repo *stubParticipantRepository, busy *stubBusyStore) *ParticipantService {
	t.Helper()
	now := fixedNow(time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC))
	cache := NewFreeTimeCache(time.Minute, 16, now)
	return NewParticipantService(repo, busy, cache, sequentialIDs("participant"), now, nil)
}

func TestCreateParticipantValidation(t *testing.T) {
	t.Parallel()

	service := newParticipantServiceFixture(t, newStubParticipantRepository(), newStubBusyStore())

	cases := []struct {
		name  string
		input ParticipantInput
		field string
	}{
		{
			name:  "missing display name",
			input: ParticipantInput{Preferences: weekdayPreferences("UTC")},
			field: "display_name",
		},
		{
			name:  "missing timezone",
			input: ParticipantInput{DisplayName: "Alice", Preferences: availability.Preferences{WorkingHours: weekdayPreferences("UTC").WorkingHours}},
			field: "timezone",
		},
		{
			name:  "bogus timezone",
			input: ParticipantInput{DisplayName: "Alice", Preferences: weekdayPreferences("Mars/Olympus_Mons")},
			field: "timezone",
		},
		{
			name: "negative buffer",
			input: ParticipantInput{DisplayName: "Alice", Preferences: availability.Preferences{
				Timezone:      "UTC",
				BufferMinutes: -5,
				WorkingHours:  weekdayPreferences("UTC").WorkingHours,
			}},
			field: "buffer_minutes",
		},
		{
			name: "inverted working hours",
			input: ParticipantInput{DisplayName: "Alice", Preferences: availability.Preferences{
				Timezone: "UTC",
				WorkingHours: map[time.Weekday]availability.DayWindow{
					time.Monday: {
						Start: availability.ClockTime{Hour: 17},
						End:   availability.ClockTime{Hour: 9},
					},
				},
			}},
			field: "working_hours.monday",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := service.CreateParticipant(context.Background(), tc.input)
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

func TestCreateParticipantPersists(t *testing.T) {
	t.Parallel()

	repo := newStubParticipantRepository()
	service := newParticipantServiceFixture(t, repo, newStubBusyStore())

	participant, err := service.CreateParticipant(context.Background(), ParticipantInput{
		DisplayName: "  Alice  ",
		Preferences: weekdayPreferences("Europe/Berlin"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if participant.ID == "" {
		t.Fatalf("expected generated id")
	}
	if participant.DisplayName != "Alice" {
		t.Fatalf("display name not trimmed: %q", participant.DisplayName)
	}
	if _, err := repo.GetParticipant(context.Background(), participant.ID); err != nil {
		t.Fatalf("participant not persisted: %v", err)
	}
}

func TestUpdatePreferencesRejectsInvalidWithoutSideEffects(t *testing.T) {
	t.Parallel()

	existing := testServiceParticipant("alice")
	repo := newStubParticipantRepository(existing)
	service := newParticipantServiceFixture(t, repo, newStubBusyStore())

	_, err := service.UpdatePreferences(context.Background(), "alice", ParticipantInput{
		Preferences: weekdayPreferences("Not/AZone"),
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("invalid preferences must not reach persistence, got %d updates", len(repo.updates))
	}

	stored, err := repo.GetParticipant(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Preferences.Timezone != "UTC" {
		t.Fatalf("stored preferences changed: %+v", stored.Preferences)
	}
}

func TestUpdatePreferencesAppliesValidInput(t *testing.T) {
	t.Parallel()

	repo := newStubParticipantRepository(testServiceParticipant("alice"))
	service := newParticipantServiceFixture(t, repo, newStubBusyStore())

	updated, err := service.UpdatePreferences(context.Background(), "alice", ParticipantInput{
		Preferences: weekdayPreferences("America/New_York"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Preferences.Timezone != "America/New_York" {
		t.Fatalf("timezone = %q", updated.Preferences.Timezone)
	}
	if len(repo.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(repo.updates))
	}
}

func TestUpdatePreferencesUnknownParticipant(t *testing.T) {
	t.Parallel()

	service := newParticipantServiceFixture(t, newStubParticipantRepository(), newStubBusyStore())

	_, err := service.UpdatePreferences(context.Background(), "ghost", ParticipantInput{
		Preferences: weekdayPreferences("UTC"),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestImportBusyIntervalsValidation(t *testing.T) {
	t.Parallel()

	repo := newStubParticipantRepository(testServiceParticipant("alice"))
	service := newParticipantServiceFixture(t, repo, newStubBusyStore())

	errEmpty := service.ImportBusyIntervals(context.Background(), ImportBusyParams{ParticipantID: "alice"})
	var vErr *ValidationError
	if !errors.As(errEmpty, &vErr) {
		t.Fatalf("expected validation error for empty import, got %v", errEmpty)
	}

	err := service.ImportBusyIntervals(context.Background(), ImportBusyParams{
		ParticipantID: "alice",
		Intervals: []interval.Interval{{
			Start: time.Date(2024, 3, 14, 11, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC),
		}},
	})
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error for inverted interval, got %v", err)
	}
}

func TestImportBusyIntervalsRetriesVersionConflict(t *testing.T) {
	t.Parallel()

	repo := newStubParticipantRepository(testServiceParticipant("alice"))
	busy := newStubBusyStore()
	var failures int
	busy.importFn = func(participantID string, expectedVersion int64, intervals []interval.Interval) error {
		if failures == 0 {
			failures++
			// Another writer moved the busy set between the read and the
			// write; the stored version advances past what the caller saw.
			repo.setVersion(participantID, expectedVersion+1)
			return persistence.ErrVersionConflict
		}
		return nil
	}
	service := newParticipantServiceFixture(t, repo, busy)

	err := service.ImportBusyIntervals(context.Background(), ImportBusyParams{
		ParticipantID: "alice",
		Intervals: []interval.Interval{{
			Start: time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 3, 14, 11, 0, 0, 0, time.UTC),
		}},
	})
	if err != nil {
		t.Fatalf("import should succeed after retry: %v", err)
	}
	if len(busy.imports) != 2 {
		t.Fatalf("import attempts = %d, want 2", len(busy.imports))
	}
	if busy.imports[0] != 0 || busy.imports[1] != 1 {
		t.Fatalf("expected re-read versions [0 1], got %v", busy.imports)
	}
}

func TestImportBusyIntervalsSurfacesPersistentConflict(t *testing.T) {
	t.Parallel()

	repo := newStubParticipantRepository(testServiceParticipant("alice"))
	busy := newStubBusyStore()
	busy.importFn = func(string, int64, []interval.Interval) error {
		return persistence.ErrVersionConflict
	}
	service := newParticipantServiceFixture(t, repo, busy)

	err := service.ImportBusyIntervals(context.Background(), ImportBusyParams{
		ParticipantID: "alice",
		Intervals: []interval.Interval{{
			Start: time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 3, 14, 11, 0, 0, 0, time.UTC),
		}},
	})
	if !errors.Is(err, persistence.ErrVersionConflict) {
		t.Fatalf("expected version conflict after exhausted retries, got %v", err)
	}
	if len(busy.imports) != 3 {
		t.Fatalf("import attempts = %d, want 3", len(busy.imports))
	}
}
