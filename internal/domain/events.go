package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event names published by the core after a successful commit.
const (
	EventJobCreated   = "job.created"
	EventJobUpdated   = "job.updated"
	EventJobDeleted   = "job.deleted"
	EventJobArchived  = "job.archived"
	EventTimerStarted = "timer.started"
	EventTimerStopped = "timer.stopped"
)

// Event is a domain event pushed to connected clients. Delivery is
// best-effort; clients reconcile by re-fetching the job by id.
type Event struct {
	Name       string    `json:"event"`
	JobID      uuid.UUID `json:"job_id"`
	Payload    any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher publishes domain events to infrastructure. Publishing is
// fire-and-forget: failures are logged, never surfaced to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}
