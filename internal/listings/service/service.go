package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	ddomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/delivery/domain"
	evdomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/events/domain"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/listings/domain"
)

// ErrTitleRequired rejects a listing whose title is empty after trimming.
var ErrTitleRequired = errors.New("listing title required")

// Notifier is the delivery orchestrator's trigger surface.
type Notifier interface {
	OnListingCreated(ctx context.Context, listingID uuid.UUID) ddomain.TriggerResult
}

type Service struct {
	repo     domain.Repository
	notifier Notifier
	pub      evdomain.Publisher
	log      zerolog.Logger
}

func New(repo domain.Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier, log: zerolog.Nop()}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(log zerolog.Logger) { s.log = log }

// SetPublisher sets the audit event publisher.
func (s *Service) SetPublisher(pub evdomain.Publisher) { s.pub = pub }

type CreateInput struct {
	Title         string
	Description   string
	Location      string
	StartsAt      time.Time
	EndsAt        time.Time
	AudienceRoles []string
	CreatedBy     uuid.UUID
}

// Create persists the listing and synchronously drives the notification
// trigger. Delivery problems never fail the creation itself: the caller gets
// the listing plus the trigger summary to surface or log.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Listing, ddomain.TriggerResult, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Listing{}, ddomain.TriggerResult{}, ErrTitleRequired
	}

	l := domain.Listing{
		ID:            uuid.New(),
		Title:         title,
		Description:   strings.TrimSpace(in.Description),
		Location:      strings.TrimSpace(in.Location),
		StartsAt:      in.StartsAt,
		EndsAt:        in.EndsAt,
		AudienceRoles: in.AudienceRoles,
		CreatedBy:     in.CreatedBy,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return domain.Listing{}, ddomain.TriggerResult{}, err
	}
	if s.pub != nil {
		_ = s.pub.Publish(ctx, evdomain.Event{
			Type:      "listing.created",
			SubjectID: l.ID,
			Meta:      map[string]string{"title": l.Title},
			Time:      time.Now(),
		})
	}

	trigger := s.notifier.OnListingCreated(ctx, l.ID)
	if !trigger.Success {
		s.log.Warn().Str("listing_id", l.ID.String()).Str("error", trigger.Error).Msg("notification trigger failed")
	}
	return l, trigger, nil
}

// GetByID returns the listing, or nil if absent.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	return s.repo.GetByID(ctx, id)
}
