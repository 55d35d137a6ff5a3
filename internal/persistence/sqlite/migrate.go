package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order at startup; each entry runs at most once,
// tracked through the schema_migrations table.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS participants (
		id             TEXT PRIMARY KEY,
		display_name   TEXT NOT NULL,
		timezone       TEXT NOT NULL,
		buffer_minutes INTEGER NOT NULL DEFAULT 0 CHECK (buffer_minutes >= 0),
		working_hours  TEXT NOT NULL,
		ideal_hours    TEXT,
		version        INTEGER NOT NULL DEFAULT 0,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS busy_intervals (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		participant_id TEXT NOT NULL REFERENCES participants(id) ON DELETE CASCADE,
		start_time     TEXT NOT NULL,
		end_time       TEXT NOT NULL,
		source         TEXT NOT NULL DEFAULT 'event',
		event_id       TEXT,
		CHECK (start_time < end_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_busy_intervals_participant
		ON busy_intervals (participant_id, start_time)`,
	`CREATE TABLE IF NOT EXISTS events (
		id            TEXT PRIMARY KEY,
		organizer_id  TEXT NOT NULL,
		title         TEXT NOT NULL,
		start_time    TEXT NOT NULL,
		end_time      TEXT NOT NULL,
		status        TEXT NOT NULL CHECK (status IN ('proposed','confirmed','cancelled','completed')),
		meeting_url   TEXT,
		cancel_reason TEXT,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL,
		CHECK (start_time < end_time)
	)`,
	`CREATE TABLE IF NOT EXISTS event_participants (
		event_id       TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		participant_id TEXT NOT NULL REFERENCES participants(id) ON DELETE CASCADE,
		PRIMARY KEY (event_id, participant_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_start ON events (start_time)`,
}

// Migrate initialises the version tracking table and applies pending
// migrations sequentially inside one transaction each.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	if _, err := cp.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("sqlite: initialize schema_migrations: %w", err)
	}

	for version, statement := range migrations {
		applied, err := cp.migrationApplied(ctx, version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		err = cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(statement); err != nil {
				return fmt.Errorf("sqlite: apply migration %d: %w", version, err)
			}
			if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
				return fmt.Errorf("sqlite: record migration %d: %w", version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (cp *ConnectionPool) migrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	if err := cp.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&count); err != nil {
		return false, fmt.Errorf("sqlite: query schema_migrations: %w", err)
	}
	return count > 0, nil
}
