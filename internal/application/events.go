package application

import (
	"context"
	"log/slog"
	"time"
)

// Domain event types emitted by the event lifecycle.
const (
	DomainEventConfirmed = "event.confirmed"
	DomainEventCancelled = "event.cancelled"
)

// DomainEvent notifies collaborators about a committed lifecycle transition.
// The engine only emits; delivery to participants is a downstream concern.
type DomainEvent struct {
	Type           string
	EventID        string
	ParticipantIDs []string
	OccurredAt     time.Time
	Payload        map[string]string
}

// Publisher receives domain events after the corresponding state change has
// been committed. Implementations must not block the calling goroutine for
// long; publishing failures are logged, never surfaced to the caller.
type Publisher interface {
	Publish(ctx context.Context, event DomainEvent)
}

// LogPublisher writes domain events to the structured log. It is the default
// wiring when no external collaborator is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

// Publish implements Publisher.
func (p LogPublisher) Publish(ctx context.Context, event DomainEvent) {
	logger := defaultLogger(p.Logger)
	attrs := []any{
		"event_type", event.Type,
		"event_id", event.EventID,
		"participants", len(event.ParticipantIDs),
		"occurred_at", event.OccurredAt.UTC().Format(time.RFC3339),
	}
	for key, value := range event.Payload {
		attrs = append(attrs, "payload."+key, value)
	}
	logger.InfoContext(ctx, "domain event published", attrs...)
}

func publish(ctx context.Context, publisher Publisher, event DomainEvent) {
	if publisher == nil {
		return
	}
	publisher.Publish(ctx, event)
}
