package service

import (
	"context"
	"strings"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/config"
	edomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/email/domain"
	sdomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/settings/domain"
)

// Ensure Router implements domain.Sender
var _ edomain.Sender = (*Router)(nil)

// Router picks the configured provider per send. Provider selection is a
// runtime setting so it can be flipped without a redeploy.
type Router struct {
	cfg      config.Config
	settings sdomain.Service
	smtp     edomain.Sender
	brevo    edomain.Sender
}

func NewRouter(settings sdomain.Service, cfg config.Config) *Router {
	return &Router{cfg: cfg, settings: settings, smtp: NewSMTP(settings, cfg), brevo: NewBrevo(settings, cfg)}
}

func (r *Router) Send(ctx context.Context, to, subject, body string) error {
	prov, _ := r.settings.GetString(ctx, sdomain.KeyEmailProvider, r.cfg.EmailProvider)
	switch strings.ToLower(prov) {
	case "brevo":
		return r.brevo.Send(ctx, to, subject, body)
	default:
		return r.smtp.Send(ctx, to, subject, body)
	}
}
