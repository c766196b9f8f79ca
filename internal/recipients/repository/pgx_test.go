package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/db"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/recipients/domain"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("skipping integration test: DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool))
	return pool
}

func insertTestRecipient(t *testing.T, pool *pgxpool.Pool, roles []string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	_, err := pool.Exec(ctx,
		`INSERT INTO recipients (id, email, first_name, last_name, roles, is_active, created_at)
		 VALUES ($1, $2, 'Itest', 'Recipient', COALESCE($3, '{}'), true, now())`,
		id, "itest-"+id.String()+"@example.edu", roles)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM recipients WHERE id = $1`, id)
	})
	return id
}

// A nil []string is encoded as SQL NULL by pgx; the upsert must still satisfy
// the NOT NULL constraint on unsubscribed_categories.
func TestUpsertPreference_NilCategories_Integration(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := New(pool)
	id := insertTestRecipient(t, pool, nil)

	err := repo.UpsertPreference(ctx, domain.Preference{RecipientID: id, EmailEnabled: true})
	require.NoError(t, err)

	pref, err := repo.GetPreference(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, pref)
	require.True(t, pref.EmailEnabled)
	require.Empty(t, pref.UnsubscribedCategories)
}

// Nil role filters mean "all roles", including when the argument reaches the
// database as NULL.
func TestListByRoles_NilFilter_Integration(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := New(pool)
	id := insertTestRecipient(t, pool, []string{"student"})

	all, err := repo.ListByRoles(ctx, nil)
	require.NoError(t, err)
	found := false
	for _, r := range all {
		if r.ID == id {
			found = true
		}
	}
	require.True(t, found, "nil filter must match every active recipient")

	enabled, err := repo.ListEmailEnabled(ctx, nil)
	require.NoError(t, err)
	found = false
	for _, r := range enabled {
		if r.ID == id {
			found = true
		}
	}
	require.True(t, found)
}
