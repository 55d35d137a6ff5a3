package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/smart-scheduler/internal/application"
	"github.com/example/smart-scheduler/internal/availability"
	"github.com/example/smart-scheduler/internal/interval"
	"github.com/example/smart-scheduler/internal/persistence"
	"github.com/example/smart-scheduler/internal/scheduler"
)

var (
	participantCounter uint64
	eventCounter       uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// -------------------------- Participant fixtures --------------------------

// ParticipantFixture represents a deterministic participant record that can be
// materialised for application or persistence tests.
type ParticipantFixture struct {
	ID          string
	DisplayName string
	Preferences availability.Preferences
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ParticipantOption configures the generated participant fixture.
type ParticipantOption func(*ParticipantFixture)

// NewParticipantFixture returns a deterministic participant fixture with
// weekday working hours of 09:00-17:00 UTC and optional overrides.
func NewParticipantFixture(opts ...ParticipantOption) ParticipantFixture {
	idx := atomic.AddUint64(&participantCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ParticipantFixture{
		ID:          fmt.Sprintf("participant-%03d", idx),
		DisplayName: fmt.Sprintf("Participant %03d", idx),
		Preferences: WeekdayPreferences("UTC"),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WeekdayPreferences builds Monday to Friday 09:00-17:00 working hours in the
// supplied timezone with no buffer and no ideal window.
func WeekdayPreferences(timezone string) availability.Preferences {
	window := availability.DayWindow{
		Start: availability.ClockTime{Hour: 9},
		End:   availability.ClockTime{Hour: 17},
	}
	return availability.Preferences{
		Timezone: timezone,
		WorkingHours: map[time.Weekday]availability.DayWindow{
			time.Monday:    window,
			time.Tuesday:   window,
			time.Wednesday: window,
			time.Thursday:  window,
			time.Friday:    window,
		},
	}
}

// WithParticipantID overrides the generated participant ID.
func WithParticipantID(id string) ParticipantOption {
	return func(f *ParticipantFixture) {
		f.ID = id
	}
}

// WithParticipantDisplayName overrides the generated display name.
func WithParticipantDisplayName(name string) ParticipantOption {
	return func(f *ParticipantFixture) {
		f.DisplayName = name
	}
}

// WithParticipantPreferences replaces the generated preferences.
func WithParticipantPreferences(prefs availability.Preferences) ParticipantOption {
	return func(f *ParticipantFixture) {
		f.Preferences = prefs
	}
}

// WithParticipantTimezone overrides only the preference timezone.
func WithParticipantTimezone(timezone string) ParticipantOption {
	return func(f *ParticipantFixture) {
		f.Preferences.Timezone = timezone
	}
}

// WithParticipantBuffer overrides the buffer minutes.
func WithParticipantBuffer(minutes int) ParticipantOption {
	return func(f *ParticipantFixture) {
		f.Preferences.BufferMinutes = minutes
	}
}

// WithParticipantIdealHours sets the preferred window used by scoring.
func WithParticipantIdealHours(start, end availability.ClockTime) ParticipantOption {
	return func(f *ParticipantFixture) {
		f.Preferences.IdealHours = &availability.DayWindow{Start: start, End: end}
	}
}

// WithParticipantVersion sets the busy-set version.
func WithParticipantVersion(version int64) ParticipantOption {
	return func(f *ParticipantFixture) {
		f.Version = version
	}
}

// WithParticipantTimestamps sets both timestamps on the fixture.
func WithParticipantTimestamps(created, updated time.Time) ParticipantOption {
	return func(f *ParticipantFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application converts the fixture into the application layer representation.
func (f ParticipantFixture) Application() application.Participant {
	return application.Participant{
		ID:          f.ID,
		DisplayName: f.DisplayName,
		Preferences: clonePreferences(f.Preferences),
		Version:     f.Version,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence converts the fixture into the storage layer representation.
func (f ParticipantFixture) Persistence() persistence.Participant {
	record := persistence.Participant{
		ID:            f.ID,
		DisplayName:   f.DisplayName,
		Timezone:      f.Preferences.Timezone,
		BufferMinutes: f.Preferences.BufferMinutes,
		Version:       f.Version,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
	if len(f.Preferences.WorkingHours) > 0 {
		record.WorkingHours = make(map[time.Weekday]persistence.DayWindow, len(f.Preferences.WorkingHours))
		for day, window := range f.Preferences.WorkingHours {
			record.WorkingHours[day] = persistence.DayWindow{
				Start: window.Start.String(),
				End:   window.End.String(),
			}
		}
	}
	if f.Preferences.IdealHours != nil {
		record.IdealHours = &persistence.DayWindow{
			Start: f.Preferences.IdealHours.Start.String(),
			End:   f.Preferences.IdealHours.End.String(),
		}
	}
	return record
}

// Input converts the fixture into creation input.
func (f ParticipantFixture) Input() application.ParticipantInput {
	return application.ParticipantInput{
		DisplayName: f.DisplayName,
		Preferences: clonePreferences(f.Preferences),
	}
}

func clonePreferences(prefs availability.Preferences) availability.Preferences {
	cloned := availability.Preferences{
		Timezone:      prefs.Timezone,
		BufferMinutes: prefs.BufferMinutes,
	}
	if len(prefs.WorkingHours) > 0 {
		cloned.WorkingHours = make(map[time.Weekday]availability.DayWindow, len(prefs.WorkingHours))
		for day, window := range prefs.WorkingHours {
			cloned.WorkingHours[day] = window
		}
	}
	if prefs.IdealHours != nil {
		window := *prefs.IdealHours
		cloned.IdealHours = &window
	}
	return cloned
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture represents a deterministic scheduled event.
type EventFixture struct {
	ID             string
	OrganizerID    string
	Title          string
	Start          time.Time
	End            time.Time
	Status         application.EventStatus
	MeetingURL     *string
	CancelReason   *string
	ParticipantIDs []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic proposed one hour event with
// optional overrides. Successive fixtures occupy successive hours so they do
// not overlap by default.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := EventFixture{
		ID:             fmt.Sprintf("event-%03d", idx),
		OrganizerID:    "participant-001",
		Title:          fmt.Sprintf("Event %03d", idx),
		Start:          start,
		End:            start.Add(time.Hour),
		Status:         application.EventStatusProposed,
		ParticipantIDs: []string{"participant-001"},
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventOrganizer overrides the organizer.
func WithEventOrganizer(id string) EventOption {
	return func(f *EventFixture) {
		f.OrganizerID = id
	}
}

// WithEventTitle overrides the title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) {
		f.Title = title
	}
}

// WithEventWindow sets the start and end of the event.
func WithEventWindow(start, end time.Time) EventOption {
	return func(f *EventFixture) {
		f.Start = start
		f.End = end
	}
}

// WithEventStatus sets the lifecycle status.
func WithEventStatus(status application.EventStatus) EventOption {
	return func(f *EventFixture) {
		f.Status = status
	}
}

// WithEventParticipants replaces the participant list.
func WithEventParticipants(participants ...string) EventOption {
	return func(f *EventFixture) {
		f.ParticipantIDs = append([]string(nil), participants...)
	}
}

// WithEventMeetingURL sets the meeting URL.
func WithEventMeetingURL(url string) EventOption {
	return func(f *EventFixture) {
		f.MeetingURL = &url
	}
}

// WithEventCancelReason sets the cancellation reason.
func WithEventCancelReason(reason string) EventOption {
	return func(f *EventFixture) {
		f.CancelReason = &reason
	}
}

// WithEventTimestamps sets both timestamps on the fixture.
func WithEventTimestamps(created, updated time.Time) EventOption {
	return func(f *EventFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application converts the fixture into the application layer representation.
func (f EventFixture) Application() application.Event {
	return application.Event{
		ID:             f.ID,
		OrganizerID:    f.OrganizerID,
		Title:          f.Title,
		Start:          f.Start,
		End:            f.End,
		Status:         f.Status,
		MeetingURL:     f.MeetingURL,
		CancelReason:   f.CancelReason,
		ParticipantIDs: append([]string(nil), f.ParticipantIDs...),
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Persistence converts the fixture into the storage layer representation.
func (f EventFixture) Persistence() persistence.Event {
	return persistence.Event{
		ID:             f.ID,
		OrganizerID:    f.OrganizerID,
		Title:          f.Title,
		Start:          f.Start,
		End:            f.End,
		Status:         persistence.EventStatus(f.Status),
		MeetingURL:     f.MeetingURL,
		CancelReason:   f.CancelReason,
		ParticipantIDs: append([]string(nil), f.ParticipantIDs...),
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Input converts the fixture into creation input.
func (f EventFixture) Input() application.EventInput {
	return application.EventInput{
		OrganizerID:    f.OrganizerID,
		Title:          f.Title,
		Start:          f.Start,
		End:            f.End,
		MeetingURL:     f.MeetingURL,
		ParticipantIDs: append([]string(nil), f.ParticipantIDs...),
	}
}

// Booking converts the fixture into a conflict-detection booking.
func (f EventFixture) Booking() scheduler.Booking {
	return scheduler.Booking{
		ID:             f.ID,
		ParticipantIDs: append([]string(nil), f.ParticipantIDs...),
		Start:          f.Start,
		End:            f.End,
	}
}

// Interval returns the event window as a UTC interval.
func (f EventFixture) Interval() interval.Interval {
	return interval.Interval{Start: f.Start.UTC(), End: f.End.UTC()}
}

// BusyInterval renders the event window as a persisted busy interval for the
// given participant.
func (f EventFixture) BusyInterval(participantID string) persistence.BusyInterval {
	id := f.ID
	return persistence.BusyInterval{
		ParticipantID: participantID,
		Start:         f.Start.UTC(),
		End:           f.End.UTC(),
		Source:        persistence.BusySourceEvent,
		EventID:       &id,
	}
}
