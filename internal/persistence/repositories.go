package persistence

import (
	"context"
	"time"
)

// ParticipantRepository exposes CRUD operations for participants and their
// preferences. Preference updates never touch the busy-interval version.
type ParticipantRepository interface {
	CreateParticipant(ctx context.Context, participant Participant) error
	UpdateParticipant(ctx context.Context, participant Participant) error
	GetParticipant(ctx context.Context, id string) (Participant, error)
	ListParticipants(ctx context.Context, ids []string) ([]Participant, error)
	DeleteParticipant(ctx context.Context, id string) error
}

// BusyFilter narrows busy-interval queries to a time window.
type BusyFilter struct {
	From *time.Time
	To   *time.Time
}

// BusyIntervalRepository reads and mutates per-participant busy sets. All
// mutations compare the supplied version against the stored one and return
// ErrVersionConflict on mismatch, leaving state untouched.
type BusyIntervalRepository interface {
	ListBusyIntervals(ctx context.Context, participantID string, filter BusyFilter) ([]BusyInterval, error)
	ImportBusyIntervals(ctx context.Context, participantID string, expectedVersion int64, intervals []BusyInterval) error
}

// EventFilter narrows event queries.
type EventFilter struct {
	ParticipantIDs []string
	Statuses       []EventStatus
	StartsAfter    *time.Time
	EndsBefore     *time.Time
}

// EventRepository stores scheduled events and performs the transactional
// lifecycle mutations. ConfirmEvent and CancelEvent are atomic: event status,
// busy intervals, and participant version bumps commit together or not at
// all; a stale expected version surfaces as ErrVersionConflict.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	ConfirmEvent(ctx context.Context, eventID string, expectedVersions map[string]int64) error
	CancelEvent(ctx context.Context, eventID string, reason *string, expectedVersions map[string]int64) error
	CompleteEvent(ctx context.Context, eventID string) error
}
