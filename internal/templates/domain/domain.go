package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Category groups templates that share a rendering contract and a variation set.
type Category string

const (
	CategoryEventAnnouncement        Category = "event_announcement"
	CategoryMentorshipInvite         Category = "mentorship_invite"
	CategoryRegistrationConfirmation Category = "registration_confirmation"
	// CategoryGeneral is the fallback variation set for categories with no
	// registered renderers.
	CategoryGeneral Category = "general"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryEventAnnouncement, CategoryMentorshipInvite, CategoryRegistrationConfirmation, CategoryGeneral:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }

// Channel is the delivery medium for a template.
type Channel string

const (
	ChannelEmail Channel = "email"
)

func (ch Channel) Valid() bool { return ch == ChannelEmail }

// Template reflects a stored template definition. Name is unique within Category.
type Template struct {
	ID        uuid.UUID
	Name      string
	Category  Category
	Channel   Channel
	Subject   string
	IsActive  bool
	CreatedAt time.Time
}

// Repository abstracts template storage.
type Repository interface {
	GetByName(ctx context.Context, name string, category Category) (*Template, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Template, error)
	// Create inserts the template; it must be a no-op if (name, category)
	// already exists so that get-or-create stays idempotent under races.
	Create(ctx context.Context, t Template) error
}
