package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/example/smart-scheduler/internal/persistence"
)

// ParticipantRepository implements persistence.ParticipantRepository and
// persistence.BusyIntervalRepository on SQLite.
type ParticipantRepository struct {
	pool *ConnectionPool
}

// NewParticipantRepository creates a SQLite-backed participant repository.
func NewParticipantRepository(pool *ConnectionPool) *ParticipantRepository {
	return &ParticipantRepository{pool: pool}
}

// CreateParticipant inserts a participant with a fresh busy-set version.
func (r *ParticipantRepository) CreateParticipant(ctx context.Context, participant persistence.Participant) error {
	hours, ideal, err := encodePreferences(participant)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if participant.CreatedAt.IsZero() {
		participant.CreatedAt = now
	}
	if participant.UpdatedAt.IsZero() {
		participant.UpdatedAt = now
	}

	_, err = r.pool.db.ExecContext(ctx, `
		INSERT INTO participants (id, display_name, timezone, buffer_minutes, working_hours, ideal_hours, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		participant.ID,
		participant.DisplayName,
		participant.Timezone,
		participant.BufferMinutes,
		hours,
		ideal,
		formatTime(participant.CreatedAt),
		formatTime(participant.UpdatedAt),
	)
	return mapError(err)
}

// UpdateParticipant replaces the stored preferences. The busy-set version is
// deliberately left alone: preference updates do not invalidate in-flight
// confirmations.
func (r *ParticipantRepository) UpdateParticipant(ctx context.Context, participant persistence.Participant) error {
	hours, ideal, err := encodePreferences(participant)
	if err != nil {
		return err
	}

	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE participants
		SET display_name = ?, timezone = ?, buffer_minutes = ?, working_hours = ?, ideal_hours = ?, updated_at = ?
		WHERE id = ?`,
		participant.DisplayName,
		participant.Timezone,
		participant.BufferMinutes,
		hours,
		ideal,
		formatTime(time.Now().UTC()),
		participant.ID,
	)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetParticipant retrieves a participant by ID.
func (r *ParticipantRepository) GetParticipant(ctx context.Context, id string) (persistence.Participant, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, display_name, timezone, buffer_minutes, working_hours, ideal_hours, version, created_at, updated_at
		FROM participants WHERE id = ?`, id)
	return scanParticipant(row)
}

// ListParticipants returns the participants matching ids, or every
// participant when ids is empty, ordered by creation time.
func (r *ParticipantRepository) ListParticipants(ctx context.Context, ids []string) ([]persistence.Participant, error) {
	query := `
		SELECT id, display_name, timezone, buffer_minutes, working_hours, ideal_hours, version, created_at, updated_at
		FROM participants`
	args := make([]any, 0, len(ids))
	if len(ids) > 0 {
		query += fmt.Sprintf(" WHERE id IN (%s)", placeholders(len(ids)))
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += " ORDER BY created_at, id"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var participants []persistence.Participant
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}
	return participants, rows.Err()
}

// DeleteParticipant removes a participant; busy intervals cascade.
func (r *ParticipantRepository) DeleteParticipant(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM participants WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListBusyIntervals returns busy intervals for a participant, optionally
// restricted to those overlapping [filter.From, filter.To), sorted by start.
func (r *ParticipantRepository) ListBusyIntervals(ctx context.Context, participantID string, filter persistence.BusyFilter) ([]persistence.BusyInterval, error) {
	query := `
		SELECT participant_id, start_time, end_time, source, event_id
		FROM busy_intervals WHERE participant_id = ?`
	args := []any{participantID}
	if filter.From != nil {
		query += " AND end_time > ?"
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		query += " AND start_time < ?"
		args = append(args, formatTime(*filter.To))
	}
	query += " ORDER BY start_time, end_time"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var intervals []persistence.BusyInterval
	for rows.Next() {
		var busy persistence.BusyInterval
		var start, end string
		var eventID sql.NullString
		if err := rows.Scan(&busy.ParticipantID, &start, &end, &busy.Source, &eventID); err != nil {
			return nil, err
		}
		if busy.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		if busy.End, err = parseTime(end); err != nil {
			return nil, err
		}
		if eventID.Valid {
			id := eventID.String
			busy.EventID = &id
		}
		intervals = append(intervals, busy)
	}
	return intervals, rows.Err()
}

// ImportBusyIntervals replaces the participant's externally synced busy
// blocks under a version compare-and-swap: the whole batch commits only when
// the stored version still matches expectedVersion. Event-claimed intervals
// are left alone so re-importing a feed never releases confirmed time.
func (r *ParticipantRepository) ImportBusyIntervals(ctx context.Context, participantID string, expectedVersion int64, intervals []persistence.BusyInterval) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := bumpVersionTx(tx, participantID, expectedVersion); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM busy_intervals WHERE participant_id = ? AND source = ?`,
			participantID, string(persistence.BusySourceImport)); err != nil {
			return mapError(err)
		}
		for _, busy := range intervals {
			if _, err := tx.Exec(`
				INSERT INTO busy_intervals (participant_id, start_time, end_time, source, event_id)
				VALUES (?, ?, ?, ?, NULL)`,
				participantID,
				formatTime(busy.Start),
				formatTime(busy.End),
				string(persistence.BusySourceImport),
			); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// bumpVersionTx performs the optimistic version bump; zero affected rows
// means another writer won the race.
func bumpVersionTx(tx *sql.Tx, participantID string, expectedVersion int64) error {
	result, err := tx.Exec(`UPDATE participants SET version = version + 1 WHERE id = ? AND version = ?`,
		participantID, expectedVersion)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM participants WHERE id = ?`, participantID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return persistence.ErrNotFound
		}
		return persistence.ErrVersionConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (persistence.Participant, error) {
	var participant persistence.Participant
	var hours string
	var ideal sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&participant.ID,
		&participant.DisplayName,
		&participant.Timezone,
		&participant.BufferMinutes,
		&hours,
		&ideal,
		&participant.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Participant{}, mapError(err)
	}

	if participant.WorkingHours, err = decodeWorkingHours(hours); err != nil {
		return persistence.Participant{}, err
	}
	if ideal.Valid {
		var window persistence.DayWindow
		if err := json.Unmarshal([]byte(ideal.String), &window); err != nil {
			return persistence.Participant{}, fmt.Errorf("sqlite: decode ideal hours: %w", err)
		}
		participant.IdealHours = &window
	}
	if participant.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Participant{}, err
	}
	if participant.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Participant{}, err
	}

	return participant, nil
}

var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "sunday",
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
}

func encodePreferences(participant persistence.Participant) (hours string, ideal *string, err error) {
	named := make(map[string]persistence.DayWindow, len(participant.WorkingHours))
	for day, window := range participant.WorkingHours {
		named[weekdayNames[day]] = window
	}
	raw, err := json.Marshal(named)
	if err != nil {
		return "", nil, fmt.Errorf("sqlite: encode working hours: %w", err)
	}
	hours = string(raw)

	if participant.IdealHours != nil {
		rawIdeal, err := json.Marshal(participant.IdealHours)
		if err != nil {
			return "", nil, fmt.Errorf("sqlite: encode ideal hours: %w", err)
		}
		encoded := string(rawIdeal)
		ideal = &encoded
	}
	return hours, ideal, nil
}

func decodeWorkingHours(raw string) (map[time.Weekday]persistence.DayWindow, error) {
	var named map[string]persistence.DayWindow
	if err := json.Unmarshal([]byte(raw), &named); err != nil {
		return nil, fmt.Errorf("sqlite: decode working hours: %w", err)
	}
	hours := make(map[time.Weekday]persistence.DayWindow, len(named))
	for name, window := range named {
		for day, key := range weekdayNames {
			if key == name {
				hours[day] = window
				break
			}
		}
	}
	return hours, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", value, err)
	}
	return t.UTC(), nil
}
