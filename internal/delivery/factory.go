package delivery

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/config"
	ctrl "github.com/CMIS-TAMU/cmis-events-sub000/internal/delivery/controller"
	repo "github.com/CMIS-TAMU/cmis-events-sub000/internal/delivery/repository"
	svc "github.com/CMIS-TAMU/cmis-events-sub000/internal/delivery/service"
	emailsvc "github.com/CMIS-TAMU/cmis-events-sub000/internal/email/service"
	evsvc "github.com/CMIS-TAMU/cmis-events-sub000/internal/events/service"
	lrepo "github.com/CMIS-TAMU/cmis-events-sub000/internal/listings/repository"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/logger"
	rl "github.com/CMIS-TAMU/cmis-events-sub000/internal/platform/ratelimit"
	rrepo "github.com/CMIS-TAMU/cmis-events-sub000/internal/recipients/repository"
	recipsvc "github.com/CMIS-TAMU/cmis-events-sub000/internal/recipients/service"
	srepo "github.com/CMIS-TAMU/cmis-events-sub000/internal/settings/repository"
	ssvc "github.com/CMIS-TAMU/cmis-events-sub000/internal/settings/service"
	trender "github.com/CMIS-TAMU/cmis-events-sub000/internal/templates/render"
	trepo "github.com/CMIS-TAMU/cmis-events-sub000/internal/templates/repository"
	tsvc "github.com/CMIS-TAMU/cmis-events-sub000/internal/templates/service"
)

// Registrar wires the whole delivery slice: stores, the enqueue/process
// services, the listing-created orchestrator, and the HTTP surface.
type Registrar struct {
	ctrl         *ctrl.Controller
	enqueuer     *svc.Enqueuer
	processor    *svc.Processor
	orchestrator *svc.Orchestrator
}

func NewRegistrar(pg *pgxpool.Pool, rdb *redis.Client, cfg config.Config) *Registrar {
	log := logger.New(cfg.AppEnv)

	settings := ssvc.New(srepo.New(pg))
	sender := emailsvc.NewRouter(settings, cfg)

	tasks := repo.NewTaskStore(pg)
	logs := repo.NewLogStore(pg)
	recipients := rrepo.New(pg)
	listings := lrepo.New(pg)
	templates := tsvc.NewRegistry(trepo.New(pg))

	prefs := recipsvc.NewPreferences(recipients)
	unsub := recipsvc.NewUnsubscribeTokens(cfg.UnsubscribeSigningKey, cfg.UnsubscribeTokenTTL, prefs)
	resolver := recipsvc.NewResolver(recipients, prefs, listings)
	resolver.SetLogger(logger.For(cfg.AppEnv, "recipients"))

	enqueuer := svc.NewEnqueuer(tasks, templates, prefs, cfg.DeliveryDefaultSpread)
	enqueuer.SetLogger(logger.For(cfg.AppEnv, "delivery"))

	processor := svc.NewProcessor(
		tasks, logs, templates, recipients, listings,
		trender.NewSelector(), sender, unsub,
		cfg.PublicBaseURL, cfg.DeliveryLookahead, cfg.DeliveryTaskTimeout,
	)
	processor.SetLogger(logger.For(cfg.AppEnv, "delivery"))

	orchestrator := svc.NewOrchestrator(listings, templates, resolver, enqueuer, processor, cfg.DeliveryBatchSize)
	orchestrator.SetLogger(logger.For(cfg.AppEnv, "delivery"))
	orchestrator.SetPublisher(evsvc.NewLogger())

	var rlStore rl.Store
	if rdb != nil {
		rlStore = rl.NewRedisStore(rdb)
	}
	c := ctrl.New(enqueuer, processor, logs, unsub, settings, cfg.DeliveryBatchSize)
	if rlStore != nil {
		c = c.WithRateLimitStore(rlStore)
	}
	c.SetLogger(log)

	return &Registrar{ctrl: c, enqueuer: enqueuer, processor: processor, orchestrator: orchestrator}
}

func (r *Registrar) Register(e *echo.Echo) { r.ctrl.Register(e) }

// Orchestrator exposes the listing-created trigger for the listings slice.
func (r *Registrar) Orchestrator() *svc.Orchestrator { return r.orchestrator }

// Processor exposes the queue processor for the background worker.
func (r *Registrar) Processor() *svc.Processor { return r.processor }
