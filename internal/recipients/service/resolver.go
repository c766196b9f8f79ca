package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/recipients/domain"
)

// ListingChecker reports whether the referenced listing exists. Implemented by
// the listings repository.
type ListingChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Resolver turns a target audience into a concrete recipient set, filtered by
// preference. Store failures degrade to an empty set so triggering features
// never crash on resolution.
type Resolver struct {
	repo     domain.Repository
	prefs    *Preferences
	listings ListingChecker
	log      zerolog.Logger
}

func NewResolver(repo domain.Repository, prefs *Preferences, listings ListingChecker) *Resolver {
	return &Resolver{repo: repo, prefs: prefs, listings: listings, log: zerolog.Nop()}
}

// SetLogger sets the logger for the resolver.
func (r *Resolver) SetLogger(log zerolog.Logger) { r.log = log }

// ResolveByRole returns active recipients matching any of the given roles,
// ensuring each has a preference record. Opted-out recipients stay in the
// result; enqueue applies the preference gate.
func (r *Resolver) ResolveByRole(ctx context.Context, roles []string) []domain.Recipient {
	recs, err := r.repo.ListByRoles(ctx, roles)
	if err != nil {
		r.log.Warn().Err(err).Strs("roles", roles).Msg("recipient lookup failed, degrading to empty set")
		return nil
	}
	for _, rec := range recs {
		if _, err := r.prefs.Ensure(ctx, rec.ID); err != nil {
			r.log.Warn().Err(err).Str("recipient_id", rec.ID.String()).Msg("preference ensure failed")
		}
	}
	return recs
}

// ResolveEligibleForListing validates the listing exists and returns the ids
// of email-enabled recipients, optionally narrowed by role.
func (r *Resolver) ResolveEligibleForListing(ctx context.Context, listingID uuid.UUID, roles ...string) ([]uuid.UUID, error) {
	ok, err := r.listings.Exists(ctx, listingID)
	if err != nil {
		r.log.Warn().Err(err).Str("listing_id", listingID.String()).Msg("listing check failed, degrading to empty set")
		return nil, nil
	}
	if !ok {
		return nil, fmt.Errorf("listing %s not found", listingID)
	}
	recs, err := r.repo.ListEmailEnabled(ctx, roles)
	if err != nil {
		r.log.Warn().Err(err).Msg("eligible recipient lookup failed, degrading to empty set")
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.ID)
	}
	return ids, nil
}
