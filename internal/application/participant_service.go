package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/smart-scheduler/internal/interval"
	"github.com/example/smart-scheduler/internal/persistence"
)

// ParticipantRepository captures the persistence interactions needed for
// participant management.
type ParticipantRepository interface {
	CreateParticipant(ctx context.Context, participant Participant) error
	UpdateParticipant(ctx context.Context, participant Participant) error
	GetParticipant(ctx context.Context, id string) (Participant, error)
	ListParticipants(ctx context.Context, ids []string) ([]Participant, error)
	DeleteParticipant(ctx context.Context, id string) error
}

// BusyIntervalStore reads and mutates per-participant busy sets. Mutations
// carry the expected busy-set version and fail with
// persistence.ErrVersionConflict when the stored version moved.
type BusyIntervalStore interface {
	ListBusyIntervals(ctx context.Context, participantID string, from, to *time.Time) ([]interval.Interval, error)
	ImportBusyIntervals(ctx context.Context, participantID string, expectedVersion int64, intervals []interval.Interval) error
}

const defaultImportRetries = 3

// ParticipantService manages participants, their scheduling preferences, and
// externally sourced busy intervals.
type ParticipantService struct {
	participants  ParticipantRepository
	busy          BusyIntervalStore
	cache         *FreeTimeCache
	idGenerator   func() string
	now           func() time.Time
	importRetries int
	logger        *slog.Logger
}

// NewParticipantService wires dependencies for participant operations.
func NewParticipantService(participants ParticipantRepository, busy BusyIntervalStore, cache *FreeTimeCache, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ParticipantService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ParticipantService{
		participants:  participants,
		busy:          busy,
		cache:         cache,
		idGenerator:   idGenerator,
		now:           now,
		importRetries: defaultImportRetries,
		logger:        defaultLogger(logger),
	}
}

// CreateParticipant validates the input and persists a new participant.
func (s *ParticipantService) CreateParticipant(ctx context.Context, input ParticipantInput) (Participant, error) {
	if s == nil {
		return Participant{}, fmt.Errorf("ParticipantService is nil")
	}
	if s.participants == nil {
		return Participant{}, fmt.Errorf("participant repository not configured")
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(input.DisplayName) == "" {
		vErr.add("display_name", "display name is required")
	}
	for field, message := range input.Preferences.Problems() {
		vErr.add(field, message)
	}
	if vErr.HasErrors() {
		return Participant{}, vErr
	}

	now := s.now()
	participant := Participant{
		ID:          s.idGenerator(),
		DisplayName: strings.TrimSpace(input.DisplayName),
		Preferences: input.Preferences,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.participants.CreateParticipant(ctx, participant); err != nil {
		return Participant{}, mapParticipantRepoError(err)
	}
	return participant, nil
}

// GetParticipant loads one participant by id.
func (s *ParticipantService) GetParticipant(ctx context.Context, id string) (Participant, error) {
	if s == nil || s.participants == nil {
		return Participant{}, fmt.Errorf("participant repository not configured")
	}
	participant, err := s.participants.GetParticipant(ctx, id)
	if err != nil {
		return Participant{}, mapParticipantRepoError(err)
	}
	return participant, nil
}

// UpdatePreferences validates and replaces a participant's preferences. On
// validation failure the stored preferences are untouched. The busy-set
// version is not affected; only busy mutations move it.
func (s *ParticipantService) UpdatePreferences(ctx context.Context, participantID string, input ParticipantInput) (Participant, error) {
	if s == nil || s.participants == nil {
		return Participant{}, fmt.Errorf("participant repository not configured")
	}

	existing, err := s.participants.GetParticipant(ctx, participantID)
	if err != nil {
		return Participant{}, mapParticipantRepoError(err)
	}

	vErr := &ValidationError{}
	for field, message := range input.Preferences.Problems() {
		vErr.add(field, message)
	}
	if vErr.HasErrors() {
		return Participant{}, vErr
	}

	updated := existing
	updated.Preferences = input.Preferences
	if name := strings.TrimSpace(input.DisplayName); name != "" {
		updated.DisplayName = name
	}
	updated.UpdatedAt = s.now()

	if err := s.participants.UpdateParticipant(ctx, updated); err != nil {
		return Participant{}, mapParticipantRepoError(err)
	}

	s.cache.Invalidate(participantID)
	return updated, nil
}

// DeleteParticipant removes a participant and, through persistence cascades,
// their busy intervals.
func (s *ParticipantService) DeleteParticipant(ctx context.Context, id string) error {
	if s == nil || s.participants == nil {
		return fmt.Errorf("participant repository not configured")
	}
	if err := s.participants.DeleteParticipant(ctx, id); err != nil {
		return mapParticipantRepoError(err)
	}
	s.cache.Invalidate(id)
	return nil
}

// ImportBusyIntervals appends externally synced busy blocks to a participant's
// busy set. The write is guarded by the busy-set version; concurrent movement
// of the set is absorbed by re-reading and retrying a bounded number of times.
func (s *ParticipantService) ImportBusyIntervals(ctx context.Context, params ImportBusyParams) (err error) {
	if s == nil || s.busy == nil {
		return fmt.Errorf("busy interval store not configured")
	}
	if s.participants == nil {
		return fmt.Errorf("participant repository not configured")
	}

	logger := serviceLogger(ctx, s.logger, "ParticipantService", "ImportBusyIntervals",
		"participant_id", params.ParticipantID,
		"intervals", len(params.Intervals),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "busy import failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "busy intervals imported")
	}()

	vErr := &ValidationError{}
	if len(params.Intervals) == 0 {
		vErr.add("intervals", "at least one interval is required")
	}
	for i, iv := range params.Intervals {
		if !iv.Valid() {
			vErr.add(fmt.Sprintf("intervals[%d]", i), "start must be before end")
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	retries := s.importRetries
	if retries <= 0 {
		retries = defaultImportRetries
	}

	for attempt := 0; attempt < retries; attempt++ {
		var participant Participant
		participant, err = s.participants.GetParticipant(ctx, params.ParticipantID)
		if err != nil {
			err = mapParticipantRepoError(err)
			return
		}

		err = s.busy.ImportBusyIntervals(ctx, params.ParticipantID, participant.Version, params.Intervals)
		if errors.Is(err, persistence.ErrVersionConflict) {
			continue
		}
		if err != nil {
			err = mapParticipantRepoError(err)
			return
		}

		s.cache.Invalidate(params.ParticipantID)
		return
	}

	// err still carries the version conflict from the final attempt.
	return
}

func mapParticipantRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		vErr := &ValidationError{}
		vErr.add("id", "participant already exists")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("preferences", "preferences violate a storage constraint")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("participant_id", "related records are missing")
		return vErr
	}
	return err
}
