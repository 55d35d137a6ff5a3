package application

import (
	"time"

	"github.com/example/smart-scheduler/internal/availability"
	"github.com/example/smart-scheduler/internal/interval"
)

// Participant represents a schedulable person exposed by the application
// services. Version guards the busy-interval set for optimistic concurrency.
type Participant struct {
	ID          string
	DisplayName string
	Preferences availability.Preferences
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ParticipantInput captures caller provided participant fields.
type ParticipantInput struct {
	DisplayName string
	Preferences availability.Preferences
}

// EventStatus enumerates the scheduled event lifecycle.
type EventStatus string

const (
	EventStatusProposed  EventStatus = "proposed"
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusCompleted EventStatus = "completed"
)

// Event represents a scheduled meeting.
type Event struct {
	ID             string
	OrganizerID    string
	Title          string
	Start          time.Time
	End            time.Time
	Status         EventStatus
	MeetingURL     *string
	CancelReason   *string
	ParticipantIDs []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EventInput captures caller provided event fields.
type EventInput struct {
	OrganizerID    string
	Title          string
	Start          time.Time
	End            time.Time
	MeetingURL     *string
	ParticipantIDs []string
}

// SlotCandidate is a proposed meeting window with its desirability score.
type SlotCandidate struct {
	Start time.Time
	End   time.Time
	Score float64
}

// FindSlotsParams wraps a slot search request. The organizer is always
// included among the participants whose availability is consulted.
type FindSlotsParams struct {
	OrganizerID     string
	ParticipantIDs  []string
	DurationMinutes int
	RangeStart      time.Time
	RangeEnd        time.Time
	MaxResults      int
}

// CancelEventParams wraps the data required to cancel an event. Cancelling an
// already cancelled event succeeds silently unless Strict is set.
type CancelEventParams struct {
	EventID string
	Reason  *string
	Strict  bool
}

// RescheduleEventParams moves an event to a new window. The original event is
// cancelled and a fresh proposed event takes its place.
type RescheduleEventParams struct {
	EventID string
	Start   time.Time
	End     time.Time
}

// ImportBusyParams appends externally sourced busy intervals to a
// participant's busy set.
type ImportBusyParams struct {
	ParticipantID string
	Intervals     []interval.Interval
}

// ListPeriod identifies the range preset requested for event listings.
type ListPeriod string

const (
	// ListPeriodNone indicates no preset; caller supplied explicit bounds.
	ListPeriodNone ListPeriod = ""
	// ListPeriodDay constrains results to a single day.
	ListPeriodDay ListPeriod = "day"
	// ListPeriodWeek constrains results to the Monday-start week containing the reference time.
	ListPeriodWeek ListPeriod = "week"
	// ListPeriodMonth constrains results to the month containing the reference time.
	ListPeriodMonth ListPeriod = "month"
)

// ListEventsParams wraps the data required to list events.
type ListEventsParams struct {
	ParticipantIDs  []string
	Statuses        []EventStatus
	StartsAfter     *time.Time
	EndsBefore      *time.Time
	Period          ListPeriod
	PeriodReference time.Time
	Timezone        string
}

// AvailabilityParams wraps a free-time query for a single participant.
type AvailabilityParams struct {
	ParticipantID string
	RangeStart    time.Time
	RangeEnd      time.Time
}
