package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Listing is a published campus event (career fair, workshop, mentorship
// session, ...). The delivery engine reads listings only to populate rendering
// input; it never mutates them.
type Listing struct {
	ID            uuid.UUID
	Title         string
	Description   string
	Location      string
	StartsAt      time.Time
	EndsAt        time.Time
	AudienceRoles []string
	CreatedBy     uuid.UUID
	CreatedAt     time.Time
}

// Repository abstracts listing storage.
type Repository interface {
	Create(ctx context.Context, l Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
