package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/delivery/domain"
)

// PGXTaskStore persists delivery tasks in Postgres.
type PGXTaskStore struct{ pool *pgxpool.Pool }

func NewTaskStore(pool *pgxpool.Pool) *PGXTaskStore { return &PGXTaskStore{pool: pool} }

func (s *PGXTaskStore) Insert(ctx context.Context, t domain.Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO delivery_tasks (id, template_id, recipient_id, scheduled_for, status, priority, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		t.ID, t.TemplateID, t.RecipientID, t.ScheduledFor, string(t.Status), t.Priority, t.Metadata)
	return err
}

func (s *PGXTaskStore) SelectDue(ctx context.Context, limit int, now time.Time, lookahead time.Duration) ([]domain.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, template_id, recipient_id, scheduled_for, status, priority, metadata, created_at
		 FROM delivery_tasks
		 WHERE status = 'pending' AND scheduled_for <= $1
		 ORDER BY priority DESC, scheduled_for ASC
		 LIMIT $2`,
		now.Add(lookahead), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		var t domain.Task
		var status string
		if err := rows.Scan(&t.ID, &t.TemplateID, &t.RecipientID, &t.ScheduledFor, &status, &t.Priority, &t.Metadata, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Status = domain.Status(status)
		out = append(out, t)
	}
	return out, rows.Err()
}

// CompareAndSetStatus is the claim step: a single conditional UPDATE checked
// by affected-row count, so two concurrent processors can never both win.
func (s *PGXTaskStore) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next domain.Status) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE delivery_tasks SET status = $1 WHERE id = $2 AND status = $3`,
		string(next), id, string(expected))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGXTaskStore) UpdateTerminal(ctx context.Context, id uuid.UUID, status domain.Status, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE delivery_tasks SET status = $1, error_message = NULLIF($2, ''), completed_at = now() WHERE id = $3`,
		string(status), errMsg, id)
	return err
}

// PGXLogStore appends delivery attempt records. Rows are never updated.
type PGXLogStore struct{ pool *pgxpool.Pool }

func NewLogStore(pool *pgxpool.Pool) *PGXLogStore { return &PGXLogStore{pool: pool} }

func (s *PGXLogStore) Append(ctx context.Context, l domain.Log) error {
	id := l.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO delivery_logs (id, task_id, template_id, recipient_id, channel, outcome, error_message, variation_index, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, now())`,
		id, l.TaskID, l.TemplateID, l.RecipientID, l.Channel, string(l.Outcome), l.ErrorMessage, l.VariationIndex)
	return err
}

func (s *PGXLogStore) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]domain.Log, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, template_id, recipient_id, channel, outcome, COALESCE(error_message, ''), variation_index, created_at
		 FROM delivery_logs
		 WHERE recipient_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Log
	for rows.Next() {
		var l domain.Log
		var outcome string
		if err := rows.Scan(&l.ID, &l.TaskID, &l.TemplateID, &l.RecipientID, &l.Channel, &outcome, &l.ErrorMessage, &l.VariationIndex, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Outcome = domain.Outcome(outcome)
		out = append(out, l)
	}
	return out, rows.Err()
}
