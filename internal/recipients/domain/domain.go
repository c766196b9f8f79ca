package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Recipient is a notifiable identity (student, mentor, organizer, ...).
type Recipient struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Roles     []string
	IsActive  bool
}

// FullName returns the display name used in rendered content.
func (r Recipient) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// HasRole reports whether the recipient carries any of the given roles.
// An empty filter matches everyone.
func (r Recipient) HasRole(roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, want := range roles {
		for _, have := range r.Roles {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// Preference holds a recipient's communication preferences. Created lazily
// with EmailEnabled=true on first resolution (opt-out model).
type Preference struct {
	RecipientID            uuid.UUID
	EmailEnabled           bool
	UnsubscribedCategories []string
	UpdatedAt              time.Time
}

// UnsubscribedFrom reports whether the recipient opted out of a category.
func (p Preference) UnsubscribedFrom(category string) bool {
	for _, c := range p.UnsubscribedCategories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// Repository abstracts recipient and preference storage.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Recipient, error)
	// ListByRoles returns active recipients matching any of the given roles.
	ListByRoles(ctx context.Context, roles []string) ([]Recipient, error)
	// ListEmailEnabled returns active recipients whose preference has
	// EmailEnabled=true (recipients without a preference row count as enabled).
	ListEmailEnabled(ctx context.Context, roles []string) ([]Recipient, error)

	GetPreference(ctx context.Context, recipientID uuid.UUID) (*Preference, error)
	UpsertPreference(ctx context.Context, p Preference) error
}
