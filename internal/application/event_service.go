package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/example/smart-scheduler/internal/interval"
	"github.com/example/smart-scheduler/internal/persistence"
)

// EventRepository captures the persistence interactions needed by the event
// lifecycle. ConfirmEvent and CancelEvent are atomic on the persistence side:
// event status, busy intervals, and participant version bumps commit together
// or not at all.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventRepositoryFilter) ([]Event, error)
	ConfirmEvent(ctx context.Context, eventID string, expectedVersions map[string]int64) error
	CancelEvent(ctx context.Context, eventID string, reason *string, expectedVersions map[string]int64) error
	CompleteEvent(ctx context.Context, eventID string) error
}

// EventRepositoryFilter narrows queries issued to the event repository. The
// time bounds select events overlapping the window.
type EventRepositoryFilter struct {
	ParticipantIDs []string
	Statuses       []EventStatus
	StartsAfter    *time.Time
	EndsBefore     *time.Time
}

const defaultConfirmRetries = 3

// EventService drives the proposed, confirmed, cancelled, completed lifecycle
// of scheduled events. Confirmation is the only operation that claims busy
// time; it re-validates availability against live state and commits through a
// per-participant version compare-and-swap.
type EventService struct {
	events         EventRepository
	participants   ParticipantRepository
	busy           BusyIntervalStore
	publisher      Publisher
	cache          *FreeTimeCache
	idGenerator    func() string
	now            func() time.Time
	confirmRetries int
	logger         *slog.Logger
}

// NewEventService wires dependencies for event lifecycle operations.
func NewEventService(events EventRepository, participants ParticipantRepository, busy BusyIntervalStore, publisher Publisher, cache *FreeTimeCache, idGenerator func() string, now func() time.Time, confirmRetries int, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if confirmRetries <= 0 {
		confirmRetries = defaultConfirmRetries
	}
	return &EventService{
		events:         events,
		participants:   participants,
		busy:           busy,
		publisher:      publisher,
		cache:          cache,
		idGenerator:    idGenerator,
		now:            now,
		confirmRetries: confirmRetries,
		logger:         defaultLogger(logger),
	}
}

// CreateEvent validates the input and persists a proposed event. Proposed
// events hold no busy time; only confirmation claims the slot.
func (s *EventService) CreateEvent(ctx context.Context, input EventInput) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	vErr := &ValidationError{}
	validateEventCore(input, vErr)
	if vErr.HasErrors() {
		return Event{}, vErr
	}

	participantIDs := uniqueStrings(append([]string{input.OrganizerID}, input.ParticipantIDs...))
	if err := s.ensureParticipantsExist(ctx, participantIDs); err != nil {
		return Event{}, err
	}

	now := s.now()
	event := Event{
		ID:             s.idGenerator(),
		OrganizerID:    input.OrganizerID,
		Title:          strings.TrimSpace(input.Title),
		Start:          input.Start.UTC(),
		End:            input.End.UTC(),
		Status:         EventStatusProposed,
		MeetingURL:     input.MeetingURL,
		ParticipantIDs: sortStrings(participantIDs),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.events.CreateEvent(ctx, event); err != nil {
		return Event{}, mapEventRepoError(err)
	}
	return event, nil
}

// ConfirmEvent transitions a proposed event to confirmed and claims the busy
// time of every participant. Availability is re-checked against live busy sets
// and the commit is guarded by each participant's busy-set version; a
// concurrent booking moves the version and the whole confirmation is retried
// from the re-read. When the retries are exhausted, or the slot is genuinely
// taken, the event stays proposed and ErrSlotUnavailable is returned.
func (s *EventService) ConfirmEvent(ctx context.Context, eventID string) (event Event, err error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}
	if s.participants == nil || s.busy == nil {
		return Event{}, fmt.Errorf("participant repository not configured")
	}

	logger := serviceLogger(ctx, s.logger, "EventService", "ConfirmEvent", "event_id", eventID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "confirmation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event confirmed")
	}()

	event, err = s.events.GetEvent(ctx, eventID)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}

	switch event.Status {
	case EventStatusProposed:
	case EventStatusConfirmed:
		// Confirming twice is a no-op.
		return event, nil
	default:
		err = ErrInvalidTransition
		return
	}

	for attempt := 0; attempt < s.confirmRetries; attempt++ {
		var versions map[string]int64
		versions, err = s.checkAvailability(ctx, event)
		if err != nil {
			return
		}

		err = s.events.ConfirmEvent(ctx, eventID, versions)
		if errors.Is(err, persistence.ErrVersionConflict) {
			logger.WarnContext(ctx, "confirmation raced a concurrent booking", "attempt", attempt+1)
			continue
		}
		if err != nil {
			err = mapEventRepoError(err)
			return
		}

		event.Status = EventStatusConfirmed
		event.UpdatedAt = s.now()
		s.cache.Invalidate(event.ParticipantIDs...)
		publish(ctx, s.publisher, DomainEvent{
			Type:           DomainEventConfirmed,
			EventID:        event.ID,
			ParticipantIDs: event.ParticipantIDs,
			OccurredAt:     s.now(),
			Payload:        map[string]string{"title": event.Title},
		})
		return event, nil
	}

	err = ErrSlotUnavailable
	return
}

// CancelEvent transitions a proposed or confirmed event to cancelled and
// releases the busy time claimed at confirmation. Cancelling an already
// cancelled event is idempotent unless strict is requested.
func (s *EventService) CancelEvent(ctx context.Context, params CancelEventParams) (event Event, err error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	logger := serviceLogger(ctx, s.logger, "EventService", "CancelEvent", "event_id", params.EventID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "cancellation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event cancelled")
	}()

	event, err = s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}

	switch event.Status {
	case EventStatusProposed, EventStatusConfirmed:
	case EventStatusCancelled:
		if params.Strict {
			err = ErrAlreadyCancelled
		}
		return
	default:
		err = ErrInvalidTransition
		return
	}

	// Only confirmed events hold busy time, so only those need version
	// guarded release.
	needsRelease := event.Status == EventStatusConfirmed

	for attempt := 0; attempt < s.confirmRetries; attempt++ {
		versions := map[string]int64{}
		if needsRelease {
			versions, err = s.participantVersions(ctx, event.ParticipantIDs)
			if err != nil {
				return
			}
		}

		err = s.events.CancelEvent(ctx, params.EventID, params.Reason, versions)
		if errors.Is(err, persistence.ErrVersionConflict) {
			logger.WarnContext(ctx, "cancellation raced a busy-set change", "attempt", attempt+1)
			continue
		}
		if err != nil {
			err = mapEventRepoError(err)
			return
		}

		event.Status = EventStatusCancelled
		event.CancelReason = params.Reason
		event.UpdatedAt = s.now()
		s.cache.Invalidate(event.ParticipantIDs...)
		publish(ctx, s.publisher, DomainEvent{
			Type:           DomainEventCancelled,
			EventID:        event.ID,
			ParticipantIDs: event.ParticipantIDs,
			OccurredAt:     s.now(),
			Payload:        cancelPayload(event.Title, params.Reason),
		})
		return event, nil
	}

	// err still carries the version conflict from the final attempt.
	return
}

// CompleteEvent transitions a confirmed event to completed once its end time
// has passed. Busy time stays claimed; the meeting happened.
func (s *EventService) CompleteEvent(ctx context.Context, eventID string) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}
	if event.Status != EventStatusConfirmed {
		return Event{}, ErrInvalidTransition
	}
	if s.now().Before(event.End) {
		vErr := &ValidationError{}
		vErr.add("time", "event has not ended yet")
		return Event{}, vErr
	}

	if err := s.events.CompleteEvent(ctx, eventID); err != nil {
		return Event{}, mapEventRepoError(err)
	}

	event.Status = EventStatusCompleted
	event.UpdatedAt = s.now()
	return event, nil
}

// RescheduleEvent replaces an event's window: a fresh proposed event is
// created for the new slot, then the original is cancelled. If the
// cancellation fails, the replacement is withdrawn so callers never observe
// both events active.
func (s *EventService) RescheduleEvent(ctx context.Context, params RescheduleEventParams) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	original, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}
	if original.Status != EventStatusProposed && original.Status != EventStatusConfirmed {
		return Event{}, ErrInvalidTransition
	}

	vErr := &ValidationError{}
	validateEventTimes(params.Start, params.End, vErr)
	if vErr.HasErrors() {
		return Event{}, vErr
	}

	now := s.now()
	replacement := original
	replacement.ID = s.idGenerator()
	replacement.Start = params.Start.UTC()
	replacement.End = params.End.UTC()
	replacement.Status = EventStatusProposed
	replacement.CancelReason = nil
	replacement.CreatedAt = now
	replacement.UpdatedAt = now

	if err := s.events.CreateEvent(ctx, replacement); err != nil {
		return Event{}, mapEventRepoError(err)
	}

	reason := "rescheduled"
	if _, err := s.CancelEvent(ctx, CancelEventParams{EventID: params.EventID, Reason: &reason}); err != nil {
		withdrawn := "reschedule aborted"
		if _, cancelErr := s.CancelEvent(ctx, CancelEventParams{EventID: replacement.ID, Reason: &withdrawn}); cancelErr != nil {
			return Event{}, fmt.Errorf("cancel original: %w (withdrawing replacement also failed: %v)", err, cancelErr)
		}
		return Event{}, err
	}

	return replacement, nil
}

// GetEvent loads a single event by id.
func (s *EventService) GetEvent(ctx context.Context, id string) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}
	event, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}
	return event, nil
}

// ListEvents enumerates events matching the filter, ordered by start time.
// Period presets resolve relative to the reference time in the requested
// timezone, defaulting to UTC.
func (s *EventService) ListEvents(ctx context.Context, params ListEventsParams) ([]Event, error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}

	filter := EventRepositoryFilter{
		ParticipantIDs: sortStrings(uniqueStrings(params.ParticipantIDs)),
		Statuses:       params.Statuses,
		StartsAfter:    params.StartsAfter,
		EndsBefore:     params.EndsBefore,
	}
	if len(filter.ParticipantIDs) == 0 {
		filter.ParticipantIDs = nil
	}

	if params.Period != ListPeriodNone {
		loc, err := listLocation(params.Timezone)
		if err != nil {
			vErr := &ValidationError{}
			vErr.add("timezone", "timezone must be a valid IANA zone name")
			return nil, vErr
		}
		reference := params.PeriodReference
		if reference.IsZero() {
			reference = s.now()
		}
		start, end := computePeriodRange(params.Period, reference, loc)
		if filter.StartsAfter == nil {
			filter.StartsAfter = &start
		}
		if filter.EndsBefore == nil {
			filter.EndsBefore = &end
		}
	}

	events, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, mapEventRepoError(err)
	}
	return events, nil
}

// checkAvailability re-reads busy sets and verifies the event window is still
// free for every participant. The returned versions feed the CAS commit.
func (s *EventService) checkAvailability(ctx context.Context, event Event) (map[string]int64, error) {
	versions, err := s.participantVersions(ctx, event.ParticipantIDs)
	if err != nil {
		return nil, err
	}

	window := interval.Interval{Start: event.Start, End: event.End}
	for _, participantID := range event.ParticipantIDs {
		busy, err := s.busy.ListBusyIntervals(ctx, participantID, &event.Start, &event.End)
		if err != nil {
			return nil, mapParticipantRepoError(err)
		}
		for _, iv := range busy {
			if iv.Overlaps(window) {
				return nil, ErrSlotUnavailable
			}
		}
	}

	return versions, nil
}

func (s *EventService) participantVersions(ctx context.Context, ids []string) (map[string]int64, error) {
	participants, err := s.participants.ListParticipants(ctx, ids)
	if err != nil {
		return nil, mapParticipantRepoError(err)
	}
	if len(participants) != len(ids) {
		return nil, ErrNotFound
	}
	versions := make(map[string]int64, len(participants))
	for _, p := range participants {
		versions[p.ID] = p.Version
	}
	return versions, nil
}

func (s *EventService) ensureParticipantsExist(ctx context.Context, ids []string) error {
	participants, err := s.participants.ListParticipants(ctx, ids)
	if err != nil {
		return mapParticipantRepoError(err)
	}
	if len(participants) == len(ids) {
		return nil
	}

	found := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		found[p.ID] = struct{}{}
	}
	missing := make([]string, 0)
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	vErr := &ValidationError{}
	vErr.add("participants", fmt.Sprintf("unknown participant ids: %s", strings.Join(missing, ", ")))
	return vErr
}

func validateEventCore(input EventInput, vErr *ValidationError) {
	if input.OrganizerID == "" {
		vErr.add("organizer_id", "organizer id is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if len(input.ParticipantIDs) == 0 {
		vErr.add("participants", "at least one participant is required")
	}
	if input.MeetingURL != nil && *input.MeetingURL != "" {
		if _, err := url.ParseRequestURI(*input.MeetingURL); err != nil {
			vErr.add("meeting_url", "must be a valid URL")
		}
	}
	validateEventTimes(input.Start, input.End, vErr)
}

func validateEventTimes(start, end time.Time, vErr *ValidationError) {
	if start.IsZero() {
		vErr.add("start", "start is required")
	}
	if end.IsZero() {
		vErr.add("end", "end is required")
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		vErr.add("time", "start must be before end")
	}
}

func listLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(timezone)
}

func computePeriodRange(period ListPeriod, reference time.Time, loc *time.Location) (time.Time, time.Time) {
	switch period {
	case ListPeriodDay:
		start := startOfDay(reference, loc)
		return start, start.AddDate(0, 0, 1)
	case ListPeriodWeek:
		start := startOfWeek(reference, loc)
		return start, start.AddDate(0, 0, 7)
	case ListPeriodMonth:
		start := startOfMonth(reference, loc)
		return start, start.AddDate(0, 1, 0)
	default:
		return time.Time{}, time.Time{}
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func startOfWeek(t time.Time, loc *time.Location) time.Time {
	start := startOfDay(t, loc)
	weekday := int(start.Weekday())
	// Adjust so Monday is start of week. In Go, Monday == 1, Sunday == 0.
	offset := (weekday + 6) % 7
	return start.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time, loc *time.Location) time.Time {
	start := startOfDay(t, loc)
	return time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, loc)
}

func cancelPayload(title string, reason *string) map[string]string {
	payload := map[string]string{"title": title}
	if reason != nil && *reason != "" {
		payload["reason"] = *reason
	}
	return payload
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		vErr := &ValidationError{}
		vErr.add("id", "event already exists")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("time", "start must be before end")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("participants", "related records are missing")
		return vErr
	}
	return err
}
