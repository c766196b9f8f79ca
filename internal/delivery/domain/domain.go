package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the delivery task lifecycle state. Transitions are monotonic:
// pending -> processing -> {sent, failed}. A task never returns to pending.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSent, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is an end state.
func (s Status) Terminal() bool { return s == StatusSent || s == StatusFailed }

// Outcome is the result of one delivery attempt.
type Outcome string

const (
	OutcomeSent   Outcome = "sent"
	OutcomeFailed Outcome = "failed"
)

// Task is a unit of scheduled communication. Immutable history once terminal.
type Task struct {
	ID           uuid.UUID
	TemplateID   uuid.UUID
	RecipientID  uuid.UUID
	ScheduledFor time.Time
	Status       Status
	Priority     int
	Metadata     map[string]string
	CreatedAt    time.Time
}

// Metadata keys carried through to rendering and logging.
const (
	MetaListingID = "listing_id"
	MetaSource    = "source"
)

// Log is an append-only record of one delivery attempt. Never mutated.
type Log struct {
	ID             uuid.UUID
	TaskID         *uuid.UUID
	TemplateID     uuid.UUID
	RecipientID    uuid.UUID
	Channel        string
	Outcome        Outcome
	ErrorMessage   string
	VariationIndex *int
	CreatedAt      time.Time
}

// TaskStore abstracts delivery task persistence.
type TaskStore interface {
	Insert(ctx context.Context, t Task) error
	// SelectDue returns up to limit pending tasks with
	// scheduled_for <= now + lookahead, ordered by priority descending then
	// scheduled_for ascending.
	SelectDue(ctx context.Context, limit int, now time.Time, lookahead time.Duration) ([]Task, error)
	// CompareAndSetStatus transitions the task from expected to next and
	// reports whether this caller won the transition. The update must be a
	// single conditional statement: concurrent processors contend on it.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next Status) (bool, error)
	// UpdateTerminal finalizes the task. errMsg is empty on success.
	UpdateTerminal(ctx context.Context, id uuid.UUID, status Status, errMsg string) error
}

// LogStore abstracts the append-only delivery log sink.
type LogStore interface {
	Append(ctx context.Context, l Log) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]Log, error)
}

// EnqueueResult reports whether a single enqueue was accepted.
type EnqueueResult struct {
	Accepted bool       `json:"accepted"`
	TaskID   *uuid.UUID `json:"taskId,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}

// BulkWindow describes the time-spread for a bulk enqueue: the base time is
// the next occurrence of StartHour (tomorrow if the current hour already
// exceeds EndHour), and each recipient gets an independent random offset in
// [0, SpreadMinutes) minutes on top of it.
type BulkWindow struct {
	StartHour     int
	EndHour       int
	SpreadMinutes int
}

// BulkResult aggregates a bulk enqueue.
type BulkResult struct {
	AcceptedCount int      `json:"acceptedCount"`
	RejectedCount int      `json:"rejectedCount"`
	Reasons       []string `json:"reasons,omitempty"`
}

// ProcessResult aggregates one queue processing batch. Per-item failures are
// collected in Errors, never raised.
type ProcessResult struct {
	Processed int      `json:"processed"`
	Sent      int      `json:"sent"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// TriggerResult is returned by the event-driven orchestrator.
type TriggerResult struct {
	Success             bool   `json:"success"`
	NotificationsQueued int    `json:"notificationsQueued"`
	NotificationsSent   int    `json:"notificationsSent"`
	NotificationsFailed int    `json:"notificationsFailed"`
	Error               string `json:"error,omitempty"`
}
