package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/smart-scheduler/internal/availability"
	"github.com/example/smart-scheduler/internal/interval"
	"github.com/example/smart-scheduler/internal/scheduler"
	"github.com/example/smart-scheduler/internal/slotting"
)

// maxSearchRange bounds how far a single slot search may look ahead.
const maxSearchRange = 62 * 24 * time.Hour

// SlotService computes ranked candidate slots for a set of participants. The
// search is read-only; confirmation re-validates against live state, so a
// returned candidate is a proposal, not a reservation.
type SlotService struct {
	participants ParticipantRepository
	busy         BusyIntervalStore
	events       EventRepository
	generator    slotting.Generator
	scorer       slotting.Scorer
	cache        *FreeTimeCache
	logger       *slog.Logger
}

// NewSlotService wires dependencies for slot searches.
func NewSlotService(participants ParticipantRepository, busy BusyIntervalStore, events EventRepository, generator slotting.Generator, scorer slotting.Scorer, cache *FreeTimeCache, logger *slog.Logger) *SlotService {
	return &SlotService{
		participants: participants,
		busy:         busy,
		events:       events,
		generator:    generator,
		scorer:       scorer,
		cache:        cache,
		logger:       defaultLogger(logger),
	}
}

// FindSlots validates the request, computes buffer-adjusted free time for
// every participant concurrently, intersects the sets, filters double-booking
// conflicts against confirmed events, and returns candidates ranked
// best-first. An empty result means no shared window exists; that is not an
// error.
func (s *SlotService) FindSlots(ctx context.Context, params FindSlotsParams) (candidates []SlotCandidate, err error) {
	if s == nil {
		return nil, fmt.Errorf("SlotService is nil")
	}
	if s.participants == nil || s.busy == nil {
		return nil, fmt.Errorf("participant repository not configured")
	}

	logger := serviceLogger(ctx, s.logger, "SlotService", "FindSlots",
		"organizer_id", params.OrganizerID,
		"participants", len(params.ParticipantIDs),
		"duration_minutes", params.DurationMinutes,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "slot search failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slot search completed", "candidates", len(candidates))
	}()

	ids, vErr := validateFindSlots(params)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	participants, err := s.loadParticipants(ctx, ids)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(params.DurationMinutes) * time.Minute
	rangeStart := params.RangeStart.UTC()
	rangeEnd := params.RangeEnd.UTC()

	freeSets, err := s.collectFreeTime(ctx, participants, rangeStart, rangeEnd)
	if err != nil {
		return nil, err
	}

	raw := s.generator.Generate(freeSets, duration)
	if len(raw) == 0 {
		return nil, nil
	}

	filtered, err := s.filterConflicts(ctx, raw, ids, rangeStart, rangeEnd)
	if err != nil {
		return nil, err
	}
	if len(filtered) == 0 {
		return nil, nil
	}

	prefs := make([]availability.Preferences, 0, len(participants))
	for _, p := range participants {
		prefs = append(prefs, p.Preferences)
	}
	ranked := s.scorer.Rank(filtered, slotting.ScoreContext{
		RangeStart:   rangeStart,
		RangeEnd:     rangeEnd,
		Duration:     duration,
		Participants: prefs,
	})

	limit := params.MaxResults
	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}

	candidates = make([]SlotCandidate, 0, limit)
	for _, c := range ranked[:limit] {
		candidates = append(candidates, SlotCandidate{Start: c.Start, End: c.End, Score: c.Score})
	}
	return candidates, nil
}

// Availability returns a single participant's buffer-adjusted free intervals
// within the requested range.
func (s *SlotService) Availability(ctx context.Context, params AvailabilityParams) ([]interval.Interval, error) {
	if s == nil || s.participants == nil || s.busy == nil {
		return nil, fmt.Errorf("participant repository not configured")
	}

	vErr := &ValidationError{}
	if params.ParticipantID == "" {
		vErr.add("participant_id", "participant id is required")
	}
	validateRange(params.RangeStart, params.RangeEnd, vErr)
	if vErr.HasErrors() {
		return nil, vErr
	}

	participant, err := s.participants.GetParticipant(ctx, params.ParticipantID)
	if err != nil {
		return nil, mapParticipantRepoError(err)
	}

	return s.freeTimeFor(ctx, participant, params.RangeStart.UTC(), params.RangeEnd.UTC())
}

func validateFindSlots(params FindSlotsParams) ([]string, *ValidationError) {
	vErr := &ValidationError{}

	if params.OrganizerID == "" {
		vErr.add("organizer_id", "organizer id is required")
	}
	ids := uniqueStrings(append([]string{params.OrganizerID}, params.ParticipantIDs...))
	if len(params.ParticipantIDs) == 0 {
		vErr.add("participants", "at least one participant is required")
	}

	if params.DurationMinutes <= 0 {
		vErr.add("duration_minutes", "duration must be positive")
	}

	validateRange(params.RangeStart, params.RangeEnd, vErr)

	return ids, vErr
}

func validateRange(start, end time.Time, vErr *ValidationError) {
	switch {
	case start.IsZero():
		vErr.add("range.from", "range start is required")
	case end.IsZero():
		vErr.add("range.to", "range end is required")
	case !start.Before(end):
		vErr.add("range", "range start must be before range end")
	case end.Sub(start) > maxSearchRange:
		vErr.add("range", "range exceeds the maximum search window")
	}
}

func (s *SlotService) loadParticipants(ctx context.Context, ids []string) ([]Participant, error) {
	participants, err := s.participants.ListParticipants(ctx, ids)
	if err != nil {
		return nil, mapParticipantRepoError(err)
	}

	if len(participants) != len(ids) {
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
		return nil, vErr
	}

	return participants, nil
}

// collectFreeTime fans out per participant. Each goroutine computes an
// independent free set; cancellation of any one aborts the group and the
// partial results are discarded.
func (s *SlotService) collectFreeTime(ctx context.Context, participants []Participant, rangeStart, rangeEnd time.Time) ([][]interval.Interval, error) {
	freeSets := make([][]interval.Interval, len(participants))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, participant := range participants {
		group.Go(func() error {
			free, err := s.freeTimeFor(groupCtx, participant, rangeStart, rangeEnd)
			if err != nil {
				return fmt.Errorf("availability for %s: %w", participant.ID, err)
			}
			freeSets[i] = free
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return freeSets, nil
}

func (s *SlotService) freeTimeFor(ctx context.Context, participant Participant, rangeStart, rangeEnd time.Time) ([]interval.Interval, error) {
	key := freeTimeCacheKey(participant.ID, rangeStart, rangeEnd)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	busy, err := s.busy.ListBusyIntervals(ctx, participant.ID, &rangeStart, &rangeEnd)
	if err != nil {
		return nil, mapParticipantRepoError(err)
	}

	free, err := availability.FreeIntervals(participant.Preferences, busy, rangeStart, rangeEnd)
	if err != nil {
		return nil, err
	}

	s.cache.Store(key, participant.ID, free)
	return free, nil
}

// filterConflicts drops candidates that double-book any participant against a
// confirmed event. Busy subtraction already excludes committed intervals; the
// detector closes the gap for events confirmed after the busy sets were read.
func (s *SlotService) filterConflicts(ctx context.Context, raw []slotting.Candidate, participantIDs []string, rangeStart, rangeEnd time.Time) ([]slotting.Candidate, error) {
	if s.events == nil {
		return raw, nil
	}

	confirmed, err := s.events.ListEvents(ctx, EventRepositoryFilter{
		ParticipantIDs: participantIDs,
		Statuses:       []EventStatus{EventStatusConfirmed},
		StartsAfter:    &rangeStart,
		EndsBefore:     &rangeEnd,
	})
	if err != nil {
		return nil, mapEventRepoError(err)
	}
	if len(confirmed) == 0 {
		return raw, nil
	}

	bookings := make([]scheduler.Booking, 0, len(confirmed))
	for _, ev := range confirmed {
		bookings = append(bookings, scheduler.Booking{
			ID:             ev.ID,
			ParticipantIDs: ev.ParticipantIDs,
			Start:          ev.Start,
			End:            ev.End,
		})
	}

	filtered := make([]slotting.Candidate, 0, len(raw))
	for _, c := range raw {
		candidate := scheduler.Booking{ParticipantIDs: participantIDs, Start: c.Start, End: c.End}
		if scheduler.HasConflict(bookings, candidate) {
			continue
		}
		filtered = append(filtered, c)
	}
	if len(filtered) == 0 {
		return nil, nil
	}
	return filtered, nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func sortStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}
