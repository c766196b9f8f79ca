package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/recipients/domain"
)

// Preferences is the preference store adapter: it looks up and lazily
// materializes a recipient's communication preferences.
type Preferences struct {
	repo domain.Repository
	log  zerolog.Logger
}

func NewPreferences(repo domain.Repository) *Preferences {
	return &Preferences{repo: repo, log: zerolog.Nop()}
}

// SetLogger sets the logger for the adapter.
func (p *Preferences) SetLogger(log zerolog.Logger) { p.log = log }

// Ensure returns the recipient's preference, creating the default
// (EmailEnabled=true, no unsubscribed categories) if none exists. It never
// re-enables a recipient who opted out.
func (p *Preferences) Ensure(ctx context.Context, recipientID uuid.UUID) (domain.Preference, error) {
	pref, err := p.repo.GetPreference(ctx, recipientID)
	if err != nil {
		return domain.Preference{}, err
	}
	if pref != nil {
		return *pref, nil
	}
	created := domain.Preference{RecipientID: recipientID, EmailEnabled: true, UnsubscribedCategories: []string{}}
	if err := p.repo.UpsertPreference(ctx, created); err != nil {
		return domain.Preference{}, err
	}
	p.log.Debug().Str("recipient_id", recipientID.String()).Msg("preference materialized with defaults")
	return created, nil
}

// DisableEmail turns off all email for the recipient.
func (p *Preferences) DisableEmail(ctx context.Context, recipientID uuid.UUID) error {
	pref, err := p.Ensure(ctx, recipientID)
	if err != nil {
		return err
	}
	pref.EmailEnabled = false
	return p.repo.UpsertPreference(ctx, pref)
}

// UnsubscribeCategory adds a category to the recipient's unsubscribe list.
func (p *Preferences) UnsubscribeCategory(ctx context.Context, recipientID uuid.UUID, category string) error {
	pref, err := p.Ensure(ctx, recipientID)
	if err != nil {
		return err
	}
	if pref.UnsubscribedFrom(category) {
		return nil
	}
	pref.UnsubscribedCategories = append(pref.UnsubscribedCategories, category)
	return p.repo.UpsertPreference(ctx, pref)
}
