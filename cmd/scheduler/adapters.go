package main

import (
	"context"
	"fmt"
	"time"

	"github.com/example/smart-scheduler/internal/application"
	"github.com/example/smart-scheduler/internal/availability"
	"github.com/example/smart-scheduler/internal/interval"
	"github.com/example/smart-scheduler/internal/persistence"
)

type participantRepositoryAdapter struct {
	repo persistence.ParticipantRepository
}

func newParticipantRepositoryAdapter(repo persistence.ParticipantRepository) *participantRepositoryAdapter {
	return &participantRepositoryAdapter{repo: repo}
}

func (a *participantRepositoryAdapter) CreateParticipant(ctx context.Context, participant application.Participant) error {
	return a.repo.CreateParticipant(ctx, toPersistenceParticipant(participant))
}

func (a *participantRepositoryAdapter) UpdateParticipant(ctx context.Context, participant application.Participant) error {
	return a.repo.UpdateParticipant(ctx, toPersistenceParticipant(participant))
}

func (a *participantRepositoryAdapter) GetParticipant(ctx context.Context, id string) (application.Participant, error) {
	stored, err := a.repo.GetParticipant(ctx, id)
	if err != nil {
		return application.Participant{}, err
	}
	return toApplicationParticipant(stored)
}

func (a *participantRepositoryAdapter) ListParticipants(ctx context.Context, ids []string) ([]application.Participant, error) {
	models, err := a.repo.ListParticipants(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	participants := make([]application.Participant, 0, len(models))
	for _, model := range models {
		participant, err := toApplicationParticipant(model)
		if err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}
	return participants, nil
}

func (a *participantRepositoryAdapter) DeleteParticipant(ctx context.Context, id string) error {
	return a.repo.DeleteParticipant(ctx, id)
}

type busyStoreAdapter struct {
	repo persistence.BusyIntervalRepository
}

func newBusyStoreAdapter(repo persistence.BusyIntervalRepository) *busyStoreAdapter {
	return &busyStoreAdapter{repo: repo}
}

func (a *busyStoreAdapter) ListBusyIntervals(ctx context.Context, participantID string, from, to *time.Time) ([]interval.Interval, error) {
	models, err := a.repo.ListBusyIntervals(ctx, participantID, persistence.BusyFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	intervals := make([]interval.Interval, 0, len(models))
	for _, model := range models {
		intervals = append(intervals, interval.Interval{Start: model.Start, End: model.End})
	}
	return intervals, nil
}

func (a *busyStoreAdapter) ImportBusyIntervals(ctx context.Context, participantID string, expectedVersion int64, intervals []interval.Interval) error {
	models := make([]persistence.BusyInterval, 0, len(intervals))
	for _, iv := range intervals {
		models = append(models, persistence.BusyInterval{
			ParticipantID: participantID,
			Start:         iv.Start,
			End:           iv.End,
			Source:        persistence.BusySourceImport,
		})
	}
	return a.repo.ImportBusyIntervals(ctx, participantID, expectedVersion, models)
}

type eventRepositoryAdapter struct {
	repo persistence.EventRepository
}

func newEventRepositoryAdapter(repo persistence.EventRepository) *eventRepositoryAdapter {
	return &eventRepositoryAdapter{repo: repo}
}

func (a *eventRepositoryAdapter) CreateEvent(ctx context.Context, event application.Event) error {
	return a.repo.CreateEvent(ctx, toPersistenceEvent(event))
}

func (a *eventRepositoryAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) ListEvents(ctx context.Context, filter application.EventRepositoryFilter) ([]application.Event, error) {
	persistedFilter := persistence.EventFilter{
		ParticipantIDs: append([]string(nil), filter.ParticipantIDs...),
		StartsAfter:    filter.StartsAfter,
		EndsBefore:     filter.EndsBefore,
	}
	for _, status := range filter.Statuses {
		persistedFilter.Statuses = append(persistedFilter.Statuses, persistence.EventStatus(status))
	}

	models, err := a.repo.ListEvents(ctx, persistedFilter)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	events := make([]application.Event, 0, len(models))
	for _, model := range models {
		events = append(events, toApplicationEvent(model))
	}
	return events, nil
}

func (a *eventRepositoryAdapter) ConfirmEvent(ctx context.Context, eventID string, expectedVersions map[string]int64) error {
	return a.repo.ConfirmEvent(ctx, eventID, expectedVersions)
}

func (a *eventRepositoryAdapter) CancelEvent(ctx context.Context, eventID string, reason *string, expectedVersions map[string]int64) error {
	return a.repo.CancelEvent(ctx, eventID, reason, expectedVersions)
}

func (a *eventRepositoryAdapter) CompleteEvent(ctx context.Context, eventID string) error {
	return a.repo.CompleteEvent(ctx, eventID)
}

func toPersistenceParticipant(participant application.Participant) persistence.Participant {
	record := persistence.Participant{
		ID:            participant.ID,
		DisplayName:   participant.DisplayName,
		Timezone:      participant.Preferences.Timezone,
		BufferMinutes: participant.Preferences.BufferMinutes,
		Version:       participant.Version,
		CreatedAt:     participant.CreatedAt,
		UpdatedAt:     participant.UpdatedAt,
	}
	if len(participant.Preferences.WorkingHours) > 0 {
		record.WorkingHours = make(map[time.Weekday]persistence.DayWindow, len(participant.Preferences.WorkingHours))
		for day, window := range participant.Preferences.WorkingHours {
			record.WorkingHours[day] = persistence.DayWindow{
				Start: window.Start.String(),
				End:   window.End.String(),
			}
		}
	}
	if participant.Preferences.IdealHours != nil {
		record.IdealHours = &persistence.DayWindow{
			Start: participant.Preferences.IdealHours.Start.String(),
			End:   participant.Preferences.IdealHours.End.String(),
		}
	}
	return record
}

func toApplicationParticipant(record persistence.Participant) (application.Participant, error) {
	prefs := availability.Preferences{
		Timezone:      record.Timezone,
		BufferMinutes: record.BufferMinutes,
	}
	if len(record.WorkingHours) > 0 {
		prefs.WorkingHours = make(map[time.Weekday]availability.DayWindow, len(record.WorkingHours))
		for day, window := range record.WorkingHours {
			parsed, err := parseStoredWindow(window)
			if err != nil {
				return application.Participant{}, fmt.Errorf("participant %s working hours: %w", record.ID, err)
			}
			prefs.WorkingHours[day] = parsed
		}
	}
	if record.IdealHours != nil {
		parsed, err := parseStoredWindow(*record.IdealHours)
		if err != nil {
			return application.Participant{}, fmt.Errorf("participant %s ideal hours: %w", record.ID, err)
		}
		prefs.IdealHours = &parsed
	}

	return application.Participant{
		ID:          record.ID,
		DisplayName: record.DisplayName,
		Preferences: prefs,
		Version:     record.Version,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}, nil
}

func parseStoredWindow(window persistence.DayWindow) (availability.DayWindow, error) {
	start, err := availability.ParseClock(window.Start)
	if err != nil {
		return availability.DayWindow{}, err
	}
	end, err := availability.ParseClock(window.End)
	if err != nil {
		return availability.DayWindow{}, err
	}
	return availability.DayWindow{Start: start, End: end}, nil
}

func toPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		ID:             event.ID,
		OrganizerID:    event.OrganizerID,
		Title:          event.Title,
		Start:          event.Start,
		End:            event.End,
		Status:         persistence.EventStatus(event.Status),
		MeetingURL:     event.MeetingURL,
		CancelReason:   event.CancelReason,
		ParticipantIDs: append([]string(nil), event.ParticipantIDs...),
		CreatedAt:      event.CreatedAt,
		UpdatedAt:      event.UpdatedAt,
	}
}

func toApplicationEvent(record persistence.Event) application.Event {
	return application.Event{
		ID:             record.ID,
		OrganizerID:    record.OrganizerID,
		Title:          record.Title,
		Start:          record.Start,
		End:            record.End,
		Status:         application.EventStatus(record.Status),
		MeetingURL:     record.MeetingURL,
		CancelReason:   record.CancelReason,
		ParticipantIDs: append([]string(nil), record.ParticipantIDs...),
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
}
