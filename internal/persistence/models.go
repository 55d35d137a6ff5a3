package persistence

import "time"

// DayWindow is a local-time window within a day, stored as "HH:MM" strings.
type DayWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Participant stores a schedulable person's preferences and the version
// guarding their busy-interval set.
type Participant struct {
	ID            string
	DisplayName   string
	Timezone      string
	BufferMinutes int
	WorkingHours  map[time.Weekday]DayWindow
	IdealHours    *DayWindow
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BusySource identifies where a busy interval came from.
type BusySource string

const (
	// BusySourceEvent marks intervals committed by a confirmed event.
	BusySourceEvent BusySource = "event"
	// BusySourceImport marks intervals synced from an external calendar feed.
	BusySourceImport BusySource = "import"
)

// BusyInterval is a UTC time range already occupied for a participant.
type BusyInterval struct {
	ParticipantID string
	Start         time.Time
	End           time.Time
	Source        BusySource
	EventID       *string
}

// EventStatus enumerates the scheduled event lifecycle.
type EventStatus string

const (
	EventStatusProposed  EventStatus = "proposed"
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusCompleted EventStatus = "completed"
)

// Event is a scheduled meeting stored in persistence.
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
