package service

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/delivery/domain"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/metrics"
	recipsvc "github.com/CMIS-TAMU/cmis-events-sub000/internal/recipients/service"
)

const (
	reasonOptedOut     = "recipient opted out"
	reasonUnsubscribed = "recipient unsubscribed from category"
)

// Enqueuer appends delivery tasks with a computed schedule time, priority,
// and opaque metadata. The preference gate lives here: a task is only ever
// created for a recipient whose email is enabled and who has not unsubscribed
// from the template's category at enqueue time.
type Enqueuer struct {
	tasks     domain.TaskStore
	templates TemplateSource
	prefs     *recipsvc.Preferences
	log       zerolog.Logger

	// injectable for tests
	now  func() time.Time
	intn func(n int) int

	// defaultSpread bounds the random schedule window when no explicit time is
	// given. Staggering bulk sends avoids bursty delivery patterns that trip
	// spam heuristics.
	defaultSpread time.Duration
}

func NewEnqueuer(tasks domain.TaskStore, templates TemplateSource, prefs *recipsvc.Preferences, defaultSpread time.Duration) *Enqueuer {
	if defaultSpread <= 0 {
		defaultSpread = 60 * time.Minute
	}
	return &Enqueuer{
		tasks:         tasks,
		templates:     templates,
		prefs:         prefs,
		log:           zerolog.Nop(),
		now:           time.Now,
		intn:          rand.Intn,
		defaultSpread: defaultSpread,
	}
}

// SetLogger sets the logger for the enqueuer.
func (e *Enqueuer) SetLogger(log zerolog.Logger) { e.log = log }

// Enqueue creates one pending task. A nil scheduledFor is replaced with a
// uniformly random time within the default spread window from now.
func (e *Enqueuer) Enqueue(ctx context.Context, templateID, recipientID uuid.UUID, scheduledFor *time.Time, priority int, metadata map[string]string) (domain.EnqueueResult, error) {
	pref, err := e.prefs.Ensure(ctx, recipientID)
	if err != nil {
		metrics.IncEnqueue("error")
		return domain.EnqueueResult{Accepted: false, Reason: "preference lookup failed: " + err.Error()}, err
	}
	if !pref.EmailEnabled {
		metrics.IncEnqueue("rejected")
		return domain.EnqueueResult{Accepted: false, Reason: reasonOptedOut}, nil
	}
	// An unknown template still enqueues; the processor reports it as a
	// descriptive failure instead.
	if tpl, terr := e.templates.GetByID(ctx, templateID); terr == nil && tpl != nil && pref.UnsubscribedFrom(tpl.Category.String()) {
		metrics.IncEnqueue("rejected")
		return domain.EnqueueResult{Accepted: false, Reason: reasonUnsubscribed}, nil
	}

	var at time.Time
	if scheduledFor != nil {
		at = *scheduledFor
	} else {
		at = e.now().Add(e.randomOffset(e.defaultSpread))
	}

	task := domain.Task{
		ID:           uuid.New(),
		TemplateID:   templateID,
		RecipientID:  recipientID,
		ScheduledFor: at,
		Status:       domain.StatusPending,
		Priority:     priority,
		Metadata:     metadata,
	}
	if err := e.tasks.Insert(ctx, task); err != nil {
		metrics.IncEnqueue("error")
		return domain.EnqueueResult{Accepted: false, Reason: "task insert failed: " + err.Error()}, err
	}
	metrics.IncEnqueue("accepted")
	e.log.Debug().
		Str("task_id", task.ID.String()).
		Str("recipient_id", recipientID.String()).
		Time("scheduled_for", at).
		Int("priority", priority).
		Msg("task enqueued")
	return domain.EnqueueResult{Accepted: true, TaskID: &task.ID}, nil
}

// EnqueueBulk spreads tasks for many recipients over the window. Every
// recipient still goes through the same preference/validation path as a
// single enqueue.
func (e *Enqueuer) EnqueueBulk(ctx context.Context, templateID uuid.UUID, recipientIDs []uuid.UUID, window domain.BulkWindow, priority int, metadata map[string]string) domain.BulkResult {
	base := e.bulkBaseTime(window)
	res := domain.BulkResult{}
	for _, rid := range recipientIDs {
		at := base.Add(e.randomOffset(time.Duration(window.SpreadMinutes) * time.Minute))
		one, err := e.Enqueue(ctx, templateID, rid, &at, priority, metadata)
		if one.Accepted {
			res.AcceptedCount++
			continue
		}
		res.RejectedCount++
		reason := one.Reason
		if reason == "" && err != nil {
			reason = err.Error()
		}
		res.Reasons = append(res.Reasons, rid.String()+": "+reason)
	}
	return res
}

// bulkBaseTime is the next occurrence of StartHour today, or tomorrow if the
// current hour already exceeds EndHour.
func (e *Enqueuer) bulkBaseTime(w domain.BulkWindow) time.Time {
	now := e.now()
	base := time.Date(now.Year(), now.Month(), now.Day(), w.StartHour, 0, 0, 0, now.Location())
	if now.Hour() > w.EndHour {
		base = base.AddDate(0, 0, 1)
	}
	return base
}

// randomOffset returns a uniform duration in [0, spread), at second
// granularity so spread recipients rarely collide.
func (e *Enqueuer) randomOffset(spread time.Duration) time.Duration {
	secs := int(spread / time.Second)
	if secs <= 0 {
		return 0
	}
	return time.Duration(e.intn(secs)) * time.Second
}
