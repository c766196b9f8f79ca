package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGXRepository struct{ pool *pgxpool.Pool }

func New(pool *pgxpool.Pool) *PGXRepository { return &PGXRepository{pool: pool} }

func (r *PGXRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM app_settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (r *PGXRepository) Upsert(ctx context.Context, key string, value string, secret bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO app_settings (id, key, value, is_secret)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, is_secret = EXCLUDED.is_secret`,
		uuid.New(), key, value, secret)
	return err
}
