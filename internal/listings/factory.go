package listings

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/config"
	evsvc "github.com/CMIS-TAMU/cmis-events-sub000/internal/events/service"
	ctrl "github.com/CMIS-TAMU/cmis-events-sub000/internal/listings/controller"
	repo "github.com/CMIS-TAMU/cmis-events-sub000/internal/listings/repository"
	svc "github.com/CMIS-TAMU/cmis-events-sub000/internal/listings/service"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/logger"
	rl "github.com/CMIS-TAMU/cmis-events-sub000/internal/platform/ratelimit"
)

type Registrar struct {
	ctrl *ctrl.Controller
}

// NewRegistrar wires the listings slice. The notifier is the delivery
// orchestrator: listing creation drives notifications synchronously.
func NewRegistrar(pg *pgxpool.Pool, rdb *redis.Client, cfg config.Config, notifier svc.Notifier) *Registrar {
	r := repo.New(pg)
	s := svc.New(r, notifier)
	s.SetLogger(logger.For(cfg.AppEnv, "listings"))
	s.SetPublisher(evsvc.NewLogger())

	c := ctrl.New(s)
	if rdb != nil {
		c = c.WithRateLimitStore(rl.NewRedisStore(rdb))
	}
	c.SetLogger(logger.For(cfg.AppEnv, "listings"))
	return &Registrar{ctrl: c}
}

func (r *Registrar) Register(e *echo.Echo) { r.ctrl.Register(e) }
