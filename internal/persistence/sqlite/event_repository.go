package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/example/smart-scheduler/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite.
type EventRepository struct {
	pool *ConnectionPool
}

// NewEventRepository creates a SQLite-backed event repository.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{pool: pool}
}

// CreateEvent inserts an event and its participant links in one transaction.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO events (id, organizer_id, title, start_time, end_time, status, meeting_url, cancel_reason, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			event.ID,
			event.OrganizerID,
			event.Title,
			formatTime(event.Start),
			formatTime(event.End),
			string(event.Status),
			nullable(event.MeetingURL),
			nullable(event.CancelReason),
			formatTime(event.CreatedAt),
			formatTime(event.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		for _, participantID := range event.ParticipantIDs {
			if _, err := tx.Exec(`
				INSERT INTO event_participants (event_id, participant_id) VALUES (?, ?)`,
				event.ID, participantID,
			); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// GetEvent retrieves an event with its participants.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, organizer_id, title, start_time, end_time, status, meeting_url, cancel_reason, created_at, updated_at
		FROM events WHERE id = ?`, id)

	event, err := scanEvent(row)
	if err != nil {
		return persistence.Event{}, err
	}

	event.ParticipantIDs, err = r.eventParticipants(ctx, id)
	if err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}

// ListEvents returns events matching the filter ordered by start time.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	query := `
		SELECT DISTINCT e.id, e.organizer_id, e.title, e.start_time, e.end_time, e.status, e.meeting_url, e.cancel_reason, e.created_at, e.updated_at
		FROM events e`
	var args []any
	where := " WHERE 1=1"

	if len(filter.ParticipantIDs) > 0 {
		query += ` JOIN event_participants ep ON ep.event_id = e.id`
		where += fmt.Sprintf(" AND ep.participant_id IN (%s)", placeholders(len(filter.ParticipantIDs)))
		for _, id := range filter.ParticipantIDs {
			args = append(args, id)
		}
	}
	if len(filter.Statuses) > 0 {
		where += fmt.Sprintf(" AND e.status IN (%s)", placeholders(len(filter.Statuses)))
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	if filter.StartsAfter != nil {
		where += " AND e.end_time > ?"
		args = append(args, formatTime(*filter.StartsAfter))
	}
	if filter.EndsBefore != nil {
		where += " AND e.start_time < ?"
		args = append(args, formatTime(*filter.EndsBefore))
	}

	rows, err := r.pool.db.QueryContext(ctx, query+where+" ORDER BY e.start_time, e.id", args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range events {
		if events[i].ParticipantIDs, err = r.eventParticipants(ctx, events[i].ID); err != nil {
			return nil, err
		}
	}
	return events, nil
}

// ConfirmEvent transitions a proposed event to confirmed, commits one busy
// interval per participant, and bumps every participant version under
// compare-and-swap. The transaction rolls back whole on any stale version.
func (r *EventRepository) ConfirmEvent(ctx context.Context, eventID string, expectedVersions map[string]int64) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var start, end string
		err := tx.QueryRow(`SELECT start_time, end_time FROM events WHERE id = ? AND status = ?`,
			eventID, string(persistence.EventStatusProposed)).Scan(&start, &end)
		if err != nil {
			return mapError(err)
		}

		if _, err := tx.Exec(`UPDATE events SET status = ?, updated_at = ? WHERE id = ?`,
			string(persistence.EventStatusConfirmed), formatTime(time.Now().UTC()), eventID); err != nil {
			return mapError(err)
		}

		for _, participantID := range sortedKeys(expectedVersions) {
			if err := bumpVersionTx(tx, participantID, expectedVersions[participantID]); err != nil {
				return err
			}
			if _, err := tx.Exec(`
				INSERT INTO busy_intervals (participant_id, start_time, end_time, source, event_id)
				VALUES (?, ?, ?, ?, ?)`,
				participantID, start, end, string(persistence.BusySourceEvent), eventID,
			); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// CancelEvent transitions a proposed or confirmed event to cancelled and
// frees its busy intervals, bumping participant versions under
// compare-and-swap so racing confirmations observe the change.
func (r *EventRepository) CancelEvent(ctx context.Context, eventID string, reason *string, expectedVersions map[string]int64) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE events SET status = ?, cancel_reason = ?, updated_at = ?
			WHERE id = ? AND status IN (?, ?)`,
			string(persistence.EventStatusCancelled),
			nullable(reason),
			formatTime(time.Now().UTC()),
			eventID,
			string(persistence.EventStatusProposed),
			string(persistence.EventStatusConfirmed),
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

		if _, err := tx.Exec(`DELETE FROM busy_intervals WHERE event_id = ?`, eventID); err != nil {
			return mapError(err)
		}

		for _, participantID := range sortedKeys(expectedVersions) {
			if err := bumpVersionTx(tx, participantID, expectedVersions[participantID]); err != nil {
				return err
			}
		}
		return nil
	})
}

// CompleteEvent transitions a confirmed event to completed.
func (r *EventRepository) CompleteEvent(ctx context.Context, eventID string) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE events SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(persistence.EventStatusCompleted),
		formatTime(time.Now().UTC()),
		eventID,
		string(persistence.EventStatusConfirmed),
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

func (r *EventRepository) eventParticipants(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT participant_id FROM event_participants WHERE event_id = ? ORDER BY participant_id`, eventID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var event persistence.Event
	var start, end, status, createdAt, updatedAt string
	var meetingURL, cancelReason sql.NullString

	err := row.Scan(
		&event.ID,
		&event.OrganizerID,
		&event.Title,
		&start,
		&end,
		&status,
		&meetingURL,
		&cancelReason,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Event{}, mapError(err)
	}

	event.Status = persistence.EventStatus(status)
	if event.Start, err = parseTime(start); err != nil {
		return persistence.Event{}, err
	}
	if event.End, err = parseTime(end); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Event{}, err
	}
	if event.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Event{}, err
	}
	if meetingURL.Valid {
		url := meetingURL.String
		event.MeetingURL = &url
	}
	if cancelReason.Valid {
		reason := cancelReason.String
		event.CancelReason = &reason
	}
	return event, nil
}

func nullable(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func sortedKeys(versions map[string]int64) []string {
	keys := make([]string, 0, len(versions))
	for key := range versions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
