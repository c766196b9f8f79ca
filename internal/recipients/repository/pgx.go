package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/recipients/domain"
)

type PGXRepository struct{ pool *pgxpool.Pool }

func New(pool *pgxpool.Pool) *PGXRepository { return &PGXRepository{pool: pool} }

func (r *PGXRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Recipient, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, first_name, last_name, roles, is_active
		 FROM recipients WHERE id = $1`, id)
	return scanRecipient(row)
}

func (r *PGXRepository) ListByRoles(ctx context.Context, roles []string) ([]domain.Recipient, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, first_name, last_name, roles, is_active
		 FROM recipients
		 WHERE is_active AND (cardinality(COALESCE($1, '{}')::text[]) = 0 OR roles && $1::text[])
		 ORDER BY email`, roles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecipients(rows)
}

func (r *PGXRepository) ListEmailEnabled(ctx context.Context, roles []string) ([]domain.Recipient, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.email, r.first_name, r.last_name, r.roles, r.is_active
		 FROM recipients r
		 LEFT JOIN preferences p ON p.recipient_id = r.id
		 WHERE r.is_active
		   AND (p.email_enabled IS NULL OR p.email_enabled)
		   AND (cardinality(COALESCE($1, '{}')::text[]) = 0 OR r.roles && $1::text[])
		 ORDER BY r.email`, roles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecipients(rows)
}

func (r *PGXRepository) GetPreference(ctx context.Context, recipientID uuid.UUID) (*domain.Preference, error) {
	var p domain.Preference
	err := r.pool.QueryRow(ctx,
		`SELECT recipient_id, email_enabled, unsubscribed_categories, updated_at
		 FROM preferences WHERE recipient_id = $1`, recipientID).
		Scan(&p.RecipientID, &p.EmailEnabled, &p.UnsubscribedCategories, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGXRepository) UpsertPreference(ctx context.Context, p domain.Preference) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO preferences (recipient_id, email_enabled, unsubscribed_categories, updated_at)
		 VALUES ($1, $2, COALESCE($3, '{}'), now())
		 ON CONFLICT (recipient_id) DO UPDATE
		 SET email_enabled = EXCLUDED.email_enabled,
		     unsubscribed_categories = EXCLUDED.unsubscribed_categories,
		     updated_at = now()`,
		p.RecipientID, p.EmailEnabled, p.UnsubscribedCategories)
	return err
}

func scanRecipient(row pgx.Row) (*domain.Recipient, error) {
	var rec domain.Recipient
	err := row.Scan(&rec.ID, &rec.Email, &rec.FirstName, &rec.LastName, &rec.Roles, &rec.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func collectRecipients(rows pgx.Rows) ([]domain.Recipient, error) {
	var out []domain.Recipient
	for rows.Next() {
		var rec domain.Recipient
		if err := rows.Scan(&rec.ID, &rec.Email, &rec.FirstName, &rec.LastName, &rec.Roles, &rec.IsActive); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
