package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	ddomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/delivery/domain"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/listings/domain"
	lsvc "github.com/CMIS-TAMU/cmis-events-sub000/internal/listings/service"
	rl "github.com/CMIS-TAMU/cmis-events-sub000/internal/platform/ratelimit"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/platform/validation"
)

type Controller struct {
	svc     *lsvc.Service
	rlStore rl.Store
	log     zerolog.Logger
}

func New(svc *lsvc.Service) *Controller {
	return &Controller{svc: svc, log: zerolog.Nop()}
}

// SetLogger sets the logger for the controller.
func (h *Controller) SetLogger(log zerolog.Logger) { h.log = log }

// WithRateLimitStore injects a shared Store for distributed rate limiting.
func (h *Controller) WithRateLimitStore(s rl.Store) *Controller { h.rlStore = s; return h }

// Register mounts the listing endpoints under /v1.
func (h *Controller) Register(e *echo.Echo) {
	createPolicy := rl.Policy{Name: "listings:create", Window: time.Minute, Limit: 30, Key: rl.KeyByIP("listings:create")}
	var createRL echo.MiddlewareFunc
	if h.rlStore != nil {
		createRL = rl.MiddlewareWithStore(createPolicy, h.rlStore)
	} else {
		createRL = rl.Middleware(createPolicy)
	}

	e.POST("/v1/listings", h.create, createRL)
	e.GET("/v1/listings/:id", h.get)
}

type createRequest struct {
	Title         string    `json:"title" validate:"required,min=1,max=200"`
	Description   string    `json:"description" validate:"max=5000"`
	Location      string    `json:"location" validate:"max=300"`
	StartsAt      time.Time `json:"starts_at" validate:"required"`
	EndsAt        time.Time `json:"ends_at"`
	AudienceRoles []string  `json:"audience_roles"`
	CreatedBy     string    `json:"created_by" validate:"omitempty,uuid"`
}

type createResponse struct {
	Listing       domain.Listing        `json:"listing"`
	Notifications ddomain.TriggerResult `json:"notifications"`
}

func (h *Controller) create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}

	in := lsvc.CreateInput{
		Title:         req.Title,
		Description:   req.Description,
		Location:      req.Location,
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
		AudienceRoles: req.AudienceRoles,
	}
	if req.CreatedBy != "" {
		id, _ := uuid.Parse(req.CreatedBy)
		in.CreatedBy = id
	}

	created, trigger, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, lsvc.ErrTitleRequired) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.log.Error().Err(err).Msg("listing creation failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create listing"})
	}
	return c.JSON(http.StatusCreated, createResponse{Listing: created, Notifications: trigger})
}

func (h *Controller) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid listing id"})
	}
	listing, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("listing_id", id.String()).Msg("listing lookup failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
	}
	if listing == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "listing not found"})
	}
	return c.JSON(http.StatusOK, listing)
}
