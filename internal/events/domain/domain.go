package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event represents a platform audit event.
// Type examples: "listing.created", "delivery.batch.processed"
// Meta may contain counts, ids, error summaries, etc.
type Event struct {
	Type      string
	SubjectID uuid.UUID
	Meta      map[string]string
	Time      time.Time
}

// Publisher publishes events to an external system (log, queue, etc.).
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
