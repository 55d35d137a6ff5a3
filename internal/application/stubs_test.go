package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/smart-scheduler/internal/interval"
	"github.com/example/smart-scheduler/internal/persistence"
)

type stubParticipantRepository struct {
	mu           sync.Mutex
	participants map[string]Participant
	updates      []Participant
	getErr       error
	listErr      error
}

func newStubParticipantRepository(participants ...Participant) *stubParticipantRepository {
	repo := &stubParticipantRepository{participants: make(map[string]Participant)}
	for _, p := range participants {
		repo.participants[p.ID] = p
	}
	return repo
}

func (r *stubParticipantRepository) CreateParticipant(_ context.Context, participant Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[participant.ID]; ok {
		return persistence.ErrDuplicate
	}
	r.participants[participant.ID] = participant
	return nil
}

func (r *stubParticipantRepository) UpdateParticipant(_ context.Context, participant Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[participant.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.participants[participant.ID] = participant
	r.updates = append(r.updates, participant)
	return nil
}

func (r *stubParticipantRepository) GetParticipant(_ context.Context, id string) (Participant, error) {
	if r.getErr != nil {
		return Participant{}, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	participant, ok := r.participants[id]
	if !ok {
		return Participant{}, persistence.ErrNotFound
	}
	return participant, nil
}

func (r *stubParticipantRepository) ListParticipants(_ context.Context, ids []string) ([]Participant, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Participant, 0, len(ids))
	for _, id := range ids {
		if participant, ok := r.participants[id]; ok {
			result = append(result, participant)
		}
	}
	return result, nil
}

func (r *stubParticipantRepository) DeleteParticipant(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.participants, id)
	return nil
}

func (r *stubParticipantRepository) setVersion(id string, version int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	participant := r.participants[id]
	participant.Version = version
	r.participants[id] = participant
}

type stubBusyStore struct {
	mu        sync.Mutex
	busy      map[string][]interval.Interval
	listCalls int
	importFn  func(participantID string, expectedVersion int64, intervals []interval.Interval) error
	imports   []int64
}

func newStubBusyStore() *stubBusyStore {
	return &stubBusyStore{busy: make(map[string][]interval.Interval)}
}

func (s *stubBusyStore) ListBusyIntervals(_ context.Context, participantID string, _, _ *time.Time) ([]interval.Interval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	return cloneIntervals(s.busy[participantID]), nil
}

func (s *stubBusyStore) ImportBusyIntervals(_ context.Context, participantID string, expectedVersion int64, intervals []interval.Interval) error {
	s.mu.Lock()
	s.imports = append(s.imports, expectedVersion)
	s.mu.Unlock()
	if s.importFn != nil {
		return s.importFn(participantID, expectedVersion, intervals)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy[participantID] = append(s.busy[participantID], intervals...)
	return nil
}

type stubEventRepository struct {
	mu         sync.Mutex
	events     map[string]Event
	lastFilter EventRepositoryFilter
	confirmFn  func(eventID string, expectedVersions map[string]int64) error
	cancelFn   func(eventID string, reason *string, expectedVersions map[string]int64) error
	confirms   []map[string]int64
	cancels    []map[string]int64
}

func newStubEventRepository(events ...Event) *stubEventRepository {
	repo := &stubEventRepository{events: make(map[string]Event)}
	for _, ev := range events {
		repo.events[ev.ID] = ev
	}
	return repo
}

func (r *stubEventRepository) CreateEvent(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; ok {
		return persistence.ErrDuplicate
	}
	r.events[event.ID] = event
	return nil
}

func (r *stubEventRepository) GetEvent(_ context.Context, id string) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return Event{}, persistence.ErrNotFound
	}
	return event, nil
}

func (r *stubEventRepository) ListEvents(_ context.Context, filter EventRepositoryFilter) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = filter

	wantStatus := make(map[EventStatus]struct{}, len(filter.Statuses))
	for _, status := range filter.Statuses {
		wantStatus[status] = struct{}{}
	}
	wantParticipant := make(map[string]struct{}, len(filter.ParticipantIDs))
	for _, id := range filter.ParticipantIDs {
		wantParticipant[id] = struct{}{}
	}

	result := make([]Event, 0, len(r.events))
	for _, event := range r.events {
		if len(wantStatus) > 0 {
			if _, ok := wantStatus[event.Status]; !ok {
				continue
			}
		}
		if len(wantParticipant) > 0 {
			matched := false
			for _, id := range event.ParticipantIDs {
				if _, ok := wantParticipant[id]; ok {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		if filter.StartsAfter != nil && !event.End.After(*filter.StartsAfter) {
			continue
		}
		if filter.EndsBefore != nil && !event.Start.Before(*filter.EndsBefore) {
			continue
		}
		result = append(result, event)
	}
	return result, nil
}

func (r *stubEventRepository) ConfirmEvent(_ context.Context, eventID string, expectedVersions map[string]int64) error {
	r.mu.Lock()
	r.confirms = append(r.confirms, expectedVersions)
	r.mu.Unlock()
	if r.confirmFn != nil {
		if err := r.confirmFn(eventID, expectedVersions); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[eventID]
	if !ok {
		return persistence.ErrNotFound
	}
	event.Status = EventStatusConfirmed
	r.events[eventID] = event
	return nil
}

func (r *stubEventRepository) CancelEvent(_ context.Context, eventID string, reason *string, expectedVersions map[string]int64) error {
	r.mu.Lock()
	r.cancels = append(r.cancels, expectedVersions)
	r.mu.Unlock()
	if r.cancelFn != nil {
		if err := r.cancelFn(eventID, reason, expectedVersions); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[eventID]
	if !ok {
		return persistence.ErrNotFound
	}
	event.Status = EventStatusCancelled
	event.CancelReason = reason
	r.events[eventID] = event
	return nil
}

func (r *stubEventRepository) CompleteEvent(_ context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[eventID]
	if !ok || event.Status != EventStatusConfirmed {
		return persistence.ErrNotFound
	}
	event.Status = EventStatusCompleted
	r.events[eventID] = event
	return nil
}

type stubPublisher struct {
	mu     sync.Mutex
	events []DomainEvent
}

func (p *stubPublisher) Publish(_ context.Context, event DomainEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *stubPublisher) published() []DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]DomainEvent, len(p.events))
	copy(out, p.events)
	return out
}

func sequentialIDs(prefix string) func() string {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
