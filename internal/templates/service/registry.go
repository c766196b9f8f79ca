package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/templates/domain"
)

// Registry resolves logical template names to stored definitions, creating a
// default definition on first use.
type Registry struct {
	repo domain.Repository
	log  zerolog.Logger
}

func NewRegistry(repo domain.Repository) *Registry {
	return &Registry{repo: repo, log: zerolog.Nop()}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(log zerolog.Logger) { r.log = log }

// GetOrCreate returns the template for (name, category), creating it with the
// given default subject if absent. Safe to call concurrently: creation is a
// conditional insert followed by a re-read.
func (r *Registry) GetOrCreate(ctx context.Context, name string, category domain.Category, defaultSubject string) (domain.Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Template{}, fmt.Errorf("template name required")
	}
	if !category.Valid() {
		return domain.Template{}, fmt.Errorf("unknown template category %q", category)
	}

	t, err := r.repo.GetByName(ctx, name, category)
	if err != nil {
		return domain.Template{}, err
	}
	if t != nil {
		return *t, nil
	}

	created := domain.Template{
		ID:       uuid.New(),
		Name:     name,
		Category: category,
		Channel:  domain.ChannelEmail,
		Subject:  defaultSubject,
		IsActive: true,
	}
	if err := r.repo.Create(ctx, created); err != nil {
		return domain.Template{}, err
	}
	// Re-read: a concurrent creator may have won the conflict.
	t, err = r.repo.GetByName(ctx, name, category)
	if err != nil {
		return domain.Template{}, err
	}
	if t == nil {
		return domain.Template{}, fmt.Errorf("template %q vanished after create", name)
	}
	r.log.Debug().Str("name", name).Str("category", category.String()).Msg("template resolved")
	return *t, nil
}

// GetByID returns the stored template by id.
func (r *Registry) GetByID(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	return r.repo.GetByID(ctx, id)
}
