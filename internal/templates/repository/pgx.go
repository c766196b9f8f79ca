package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/templates/domain"
)

type PGXRepository struct{ pool *pgxpool.Pool }

func New(pool *pgxpool.Pool) *PGXRepository { return &PGXRepository{pool: pool} }

func (r *PGXRepository) GetByName(ctx context.Context, name string, category domain.Category) (*domain.Template, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, category, channel, subject, is_active, created_at
		 FROM templates WHERE name = $1 AND category = $2`, name, string(category))
	return scanTemplate(row)
}

func (r *PGXRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, category, channel, subject, is_active, created_at
		 FROM templates WHERE id = $1`, id)
	return scanTemplate(row)
}

func (r *PGXRepository) Create(ctx context.Context, t domain.Template) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO templates (id, name, category, channel, subject, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())
		 ON CONFLICT (name, category) DO NOTHING`,
		t.ID, t.Name, string(t.Category), string(t.Channel), t.Subject, t.IsActive)
	return err
}

func scanTemplate(row pgx.Row) (*domain.Template, error) {
	var t domain.Template
	var category, channel string
	err := row.Scan(&t.ID, &t.Name, &category, &channel, &t.Subject, &t.IsActive, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.Category = domain.Category(category)
	t.Channel = domain.Channel(channel)
	return &t, nil
}
