package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/delivery/domain"
	edomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/email/domain"
	ldomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/listings/domain"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/metrics"
	rdomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/recipients/domain"
	recipsvc "github.com/CMIS-TAMU/cmis-events-sub000/internal/recipients/service"
	tdomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/templates/domain"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/templates/render"
)

// TemplateSource resolves stored templates. Implemented by the template registry.
type TemplateSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*tdomain.Template, error)
}

// Processor claims due pending tasks in priority/time order, renders content,
// calls the transport, and records the outcome. One task's failure never
// aborts the batch.
type Processor struct {
	tasks      domain.TaskStore
	logs       domain.LogStore
	templates  TemplateSource
	recipients rdomain.Repository
	listings   ldomain.Repository
	selector   *render.Selector
	sender     edomain.Sender
	unsub      *recipsvc.UnsubscribeTokens
	log        zerolog.Logger

	baseURL     string
	lookahead   time.Duration
	taskTimeout time.Duration
	now         func() time.Time
}

func NewProcessor(
	tasks domain.TaskStore,
	logs domain.LogStore,
	templates TemplateSource,
	recipients rdomain.Repository,
	listings ldomain.Repository,
	selector *render.Selector,
	sender edomain.Sender,
	unsub *recipsvc.UnsubscribeTokens,
	baseURL string,
	lookahead time.Duration,
	taskTimeout time.Duration,
) *Processor {
	if lookahead <= 0 {
		lookahead = 10 * time.Second
	}
	if taskTimeout <= 0 {
		taskTimeout = 15 * time.Second
	}
	return &Processor{
		tasks:       tasks,
		logs:        logs,
		templates:   templates,
		recipients:  recipients,
		listings:    listings,
		selector:    selector,
		sender:      sender,
		unsub:       unsub,
		log:         zerolog.Nop(),
		baseURL:     baseURL,
		lookahead:   lookahead,
		taskTimeout: taskTimeout,
		now:         time.Now,
	}
}

// SetLogger sets the logger for the processor.
func (p *Processor) SetLogger(log zerolog.Logger) { p.log = log }

// ProcessQueue services up to batchSize due tasks. A failure to even fetch the
// batch is returned as zero progress with the store error surfaced, never
// propagated.
func (p *Processor) ProcessQueue(ctx context.Context, batchSize int) domain.ProcessResult {
	start := time.Now()
	defer func() { metrics.ObserveBatchDuration(time.Since(start).Seconds()) }()

	if batchSize <= 0 {
		batchSize = 50
	}
	due, err := p.tasks.SelectDue(ctx, batchSize, p.now(), p.lookahead)
	if err != nil {
		p.log.Error().Err(err).Msg("batch fetch failed")
		return domain.ProcessResult{Errors: []string{"batch fetch failed: " + err.Error()}}
	}

	res := domain.ProcessResult{}
	for _, task := range due {
		claimed, err := p.tasks.CompareAndSetStatus(ctx, task.ID, domain.StatusPending, domain.StatusProcessing)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("task %s: claim failed: %v", task.ID, err))
			continue
		}
		if !claimed {
			// a concurrent processor won this task
			metrics.IncClaimConflict()
			continue
		}
		res.Processed++

		category, variation, sendErr := p.processOne(ctx, task)
		if sendErr == nil {
			res.Sent++
			metrics.IncDeliveryOutcome(metricCategory(category), string(domain.OutcomeSent))
			p.finalize(ctx, task, domain.StatusSent, "", variation)
			continue
		}
		res.Failed++
		res.Errors = append(res.Errors, fmt.Sprintf("task %s: %v", task.ID, sendErr))
		metrics.IncDeliveryOutcome(metricCategory(category), string(domain.OutcomeFailed))
		p.finalize(ctx, task, domain.StatusFailed, sendErr.Error(), variation)
	}

	p.log.Info().
		Int("processed", res.Processed).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Msg("queue batch complete")
	return res
}

// metricCategory clamps the outcome label to the known category set so bad
// rows cannot grow the label cardinality.
func metricCategory(cat string) string {
	if !tdomain.Category(cat).Valid() {
		return "unknown"
	}
	return cat
}

// processOne resolves, renders, and sends a single claimed task. Returns the
// template category (for metrics), the variation index used (-1 if none), and
// the failure, if any.
func (p *Processor) processOne(ctx context.Context, task domain.Task) (category string, variation int, err error) {
	variation = -1
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rendering panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, p.taskTimeout)
	defer cancel()

	tpl, err := p.templates.GetByID(ctx, task.TemplateID)
	if err != nil {
		return "", variation, fmt.Errorf("template lookup failed: %w", err)
	}
	if tpl == nil {
		return "", variation, fmt.Errorf("template %s not found", task.TemplateID)
	}
	category = tpl.Category.String()
	if !tpl.Category.Valid() {
		return category, variation, fmt.Errorf("unknown template category %q", tpl.Category)
	}

	rec, err := p.recipients.GetByID(ctx, task.RecipientID)
	if err != nil {
		return category, variation, fmt.Errorf("recipient lookup failed: %w", err)
	}
	if rec == nil {
		return category, variation, fmt.Errorf("recipient %s not found", task.RecipientID)
	}

	// Preferences can change between enqueue and send; re-check so an
	// unsubscribe link clicked after enqueue still suppresses pending mail.
	pref, err := p.recipients.GetPreference(ctx, rec.ID)
	if err != nil {
		return category, variation, fmt.Errorf("preference lookup failed: %w", err)
	}
	if pref != nil {
		if !pref.EmailEnabled {
			return category, variation, fmt.Errorf("recipient %s opted out", rec.ID)
		}
		if pref.UnsubscribedFrom(category) {
			return category, variation, fmt.Errorf("recipient %s unsubscribed from category %s", rec.ID, category)
		}
	}

	in := render.Input{
		RecipientName: rec.FullName(),
		BaseURL:       p.baseURL,
	}
	if token, terr := p.unsub.Issue(rec.ID, category); terr == nil {
		in.UnsubscribeToken = token
	}
	if err := p.resolveListing(ctx, task, tpl.Category, &in); err != nil {
		return category, variation, err
	}

	fn, idx := p.selector.Select(tpl.Category)
	variation = idx
	content := fn(in)
	subject := content.Subject
	if subject == "" {
		subject = tpl.Subject
	}

	if err := p.sender.Send(ctx, rec.Email, subject, content.HTML); err != nil {
		return category, variation, fmt.Errorf("transport send failed: %w", err)
	}
	return category, variation, nil
}

// resolveListing populates the listing payload for categories that reference a
// domain object through task metadata. A missing reference or record is a
// descriptive failure; it is not retried.
func (p *Processor) resolveListing(ctx context.Context, task domain.Task, cat tdomain.Category, in *render.Input) error {
	raw, ok := task.Metadata[domain.MetaListingID]
	if !ok || raw == "" {
		if cat == tdomain.CategoryEventAnnouncement || cat == tdomain.CategoryRegistrationConfirmation {
			return fmt.Errorf("category %s requires %s metadata", cat, domain.MetaListingID)
		}
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s metadata %q", domain.MetaListingID, raw)
	}
	l, err := p.listings.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("listing lookup failed: %w", err)
	}
	if l == nil {
		return fmt.Errorf("listing %s not found", id)
	}
	in.ListingTitle = l.Title
	in.ListingDescription = l.Description
	in.ListingLocation = l.Location
	in.ListingStartsAt = l.StartsAt
	return nil
}

// finalize moves a claimed task to its terminal status and appends exactly one
// log entry for the attempt.
func (p *Processor) finalize(ctx context.Context, task domain.Task, status domain.Status, errMsg string, variation int) {
	if err := p.tasks.UpdateTerminal(ctx, task.ID, status, errMsg); err != nil {
		p.log.Error().Err(err).Str("task_id", task.ID.String()).Msg("terminal update failed")
	}
	outcome := domain.OutcomeSent
	if status == domain.StatusFailed {
		outcome = domain.OutcomeFailed
	}
	entry := domain.Log{
		ID:           uuid.New(),
		TaskID:       &task.ID,
		TemplateID:   task.TemplateID,
		RecipientID:  task.RecipientID,
		Channel:      string(tdomain.ChannelEmail),
		Outcome:      outcome,
		ErrorMessage: errMsg,
	}
	if variation >= 0 {
		entry.VariationIndex = &variation
	}
	if err := p.logs.Append(ctx, entry); err != nil {
		p.log.Error().Err(err).Str("task_id", task.ID.String()).Msg("delivery log append failed")
	}
}
