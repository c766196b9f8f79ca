package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/listings/domain"
)

type PGXRepository struct{ pool *pgxpool.Pool }

func New(pool *pgxpool.Pool) *PGXRepository { return &PGXRepository{pool: pool} }

func (r *PGXRepository) Create(ctx context.Context, l domain.Listing) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO listings (id, title, description, location, starts_at, ends_at, audience_roles, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, '{}'), $8, now())`,
		l.ID, l.Title, l.Description, l.Location, l.StartsAt, l.EndsAt, l.AudienceRoles, l.CreatedBy)
	return err
}

func (r *PGXRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, location, starts_at, ends_at, audience_roles, created_by, created_at
		 FROM listings WHERE id = $1`, id).
		Scan(&l.ID, &l.Title, &l.Description, &l.Location, &l.StartsAt, &l.EndsAt, &l.AudienceRoles, &l.CreatedBy, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *PGXRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM listings WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, err
	}
	return ok, nil
}
