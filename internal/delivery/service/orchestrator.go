package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/delivery/domain"
	evdomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/events/domain"
	ldomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/listings/domain"
	recipsvc "github.com/CMIS-TAMU/cmis-events-sub000/internal/recipients/service"
	tdomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/templates/domain"
)

// TemplateRegistry resolves a logical template name to a stored definition,
// creating a default on first use. Implemented by the template registry.
type TemplateRegistry interface {
	GetOrCreate(ctx context.Context, name string, category tdomain.Category, defaultSubject string) (tdomain.Template, error)
}

const (
	listingTemplateName    = "new_listing_announcement"
	listingDefaultSubject  = "A new event was posted on campus"
	listingTriggerPriority = 5

	// commitVisibilityWait masks the gap between enqueue commit and the
	// immediately following processor pass.
	commitVisibilityWait = 2 * time.Second
	retryWait            = 3 * time.Second
)

// Orchestrator reacts to a listing creation: it resolves the audience, queues
// one task per recipient with a near-immediate schedule, then drives the
// processor for low-latency delivery, with one bounded re-process if nothing
// was sent on the first pass.
type Orchestrator struct {
	listings  ldomain.Repository
	registry  TemplateRegistry
	resolver  *recipsvc.Resolver
	enqueuer  *Enqueuer
	processor *Processor
	pub       evdomain.Publisher
	log       zerolog.Logger

	batchSize int
	// injectable for tests
	sleep func(time.Duration)
	now   func() time.Time
	intn  func(n int) int
}

func NewOrchestrator(
	listings ldomain.Repository,
	registry TemplateRegistry,
	resolver *recipsvc.Resolver,
	enqueuer *Enqueuer,
	processor *Processor,
	batchSize int,
) *Orchestrator {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Orchestrator{
		listings:  listings,
		registry:  registry,
		resolver:  resolver,
		enqueuer:  enqueuer,
		processor: processor,
		log:       zerolog.Nop(),
		batchSize: batchSize,
		sleep:     time.Sleep,
		now:       time.Now,
		intn:      defaultIntn,
	}
}

func defaultIntn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(time.Now().UnixNano()) % n
}

// SetLogger sets the logger for the orchestrator.
func (o *Orchestrator) SetLogger(log zerolog.Logger) { o.log = log }

// SetPublisher sets the audit event publisher.
func (o *Orchestrator) SetPublisher(pub evdomain.Publisher) { o.pub = pub }

// OnListingCreated turns a created listing into queued, then delivered,
// notifications. Soft conditions (zero recipients) come back as a successful
// result with an explanatory message; per-recipient enqueue failures never
// stop the remaining recipients.
func (o *Orchestrator) OnListingCreated(ctx context.Context, listingID uuid.UUID) domain.TriggerResult {
	listing, err := o.listings.GetByID(ctx, listingID)
	if err != nil {
		return domain.TriggerResult{Success: false, Error: "listing lookup failed: " + err.Error()}
	}
	if listing == nil {
		return domain.TriggerResult{Success: false, Error: fmt.Sprintf("listing %s not found", listingID)}
	}

	tpl, err := o.registry.GetOrCreate(ctx, listingTemplateName, tdomain.CategoryEventAnnouncement, listingDefaultSubject)
	if err != nil {
		return domain.TriggerResult{Success: false, Error: "template resolution failed: " + err.Error()}
	}

	recipientIDs, err := o.resolver.ResolveEligibleForListing(ctx, listingID, listing.AudienceRoles...)
	if err != nil {
		return domain.TriggerResult{Success: false, Error: err.Error()}
	}
	if len(recipientIDs) == 0 {
		return domain.TriggerResult{Success: true, Error: "no eligible recipients for listing"}
	}

	meta := map[string]string{
		domain.MetaListingID: listingID.String(),
		domain.MetaSource:    "listing.created",
	}
	queued := 0
	var enqueueErrs []string
	for _, rid := range recipientIDs {
		// near-immediate schedule with small jitter
		at := o.now().Add(time.Duration(o.intn(5)) * time.Second)
		res, err := o.enqueuer.Enqueue(ctx, tpl.ID, rid, &at, listingTriggerPriority, meta)
		if res.Accepted {
			queued++
			continue
		}
		if err != nil {
			enqueueErrs = append(enqueueErrs, rid.String()+": "+err.Error())
		} else if res.Reason != reasonOptedOut {
			enqueueErrs = append(enqueueErrs, rid.String()+": "+res.Reason)
		}
	}
	if queued == 0 {
		return domain.TriggerResult{
			Success: true,
			Error:   firstNonEmpty(strings.Join(enqueueErrs, "; "), "no recipients accepted for delivery"),
		}
	}

	o.sleep(commitVisibilityWait)
	batch := o.processor.ProcessQueue(ctx, o.batchSize)
	sent, failed := batch.Sent, batch.Failed
	if sent == 0 && queued > 0 {
		// one bounded retry to cover tasks scheduled seconds in the future
		o.sleep(retryWait)
		second := o.processor.ProcessQueue(ctx, o.batchSize)
		sent += second.Sent
		failed += second.Failed
	}

	o.publish(ctx, listingID, queued, sent, failed)
	result := domain.TriggerResult{
		Success:             true,
		NotificationsQueued: queued,
		NotificationsSent:   sent,
		NotificationsFailed: failed,
	}
	if len(enqueueErrs) > 0 {
		result.Error = "some recipients could not be enqueued: " + strings.Join(enqueueErrs, "; ")
	}
	o.log.Info().
		Str("listing_id", listingID.String()).
		Int("queued", queued).
		Int("sent", sent).
		Int("failed", failed).
		Msg("listing notifications dispatched")
	return result
}

func (o *Orchestrator) publish(ctx context.Context, listingID uuid.UUID, queued, sent, failed int) {
	if o.pub == nil {
		return
	}
	_ = o.pub.Publish(ctx, evdomain.Event{
		Type:      "delivery.listing.dispatched",
		SubjectID: listingID,
		Meta: map[string]string{
			"queued": fmt.Sprintf("%d", queued),
			"sent":   fmt.Sprintf("%d", sent),
			"failed": fmt.Sprintf("%d", failed),
		},
		Time: o.now(),
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
