package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/delivery/domain"
	dsvc "github.com/CMIS-TAMU/cmis-events-sub000/internal/delivery/service"
	rl "github.com/CMIS-TAMU/cmis-events-sub000/internal/platform/ratelimit"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/platform/validation"
	recipsvc "github.com/CMIS-TAMU/cmis-events-sub000/internal/recipients/service"
	sdomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/settings/domain"
)

// Controller exposes the notification admin endpoints and the public
// unsubscribe endpoint.
type Controller struct {
	enqueuer  *dsvc.Enqueuer
	processor *dsvc.Processor
	logs      domain.LogStore
	unsub     *recipsvc.UnsubscribeTokens
	settings  sdomain.Service
	rlStore   rl.Store
	log       zerolog.Logger

	defaultBatchSize int
}

func New(enqueuer *dsvc.Enqueuer, processor *dsvc.Processor, logs domain.LogStore, unsub *recipsvc.UnsubscribeTokens, settings sdomain.Service, defaultBatchSize int) *Controller {
	if defaultBatchSize <= 0 {
		defaultBatchSize = 50
	}
	return &Controller{
		enqueuer:         enqueuer,
		processor:        processor,
		logs:             logs,
		unsub:            unsub,
		settings:         settings,
		log:              zerolog.Nop(),
		defaultBatchSize: defaultBatchSize,
	}
}

// SetLogger sets the logger for the controller.
func (h *Controller) SetLogger(log zerolog.Logger) { h.log = log }

// WithRateLimitStore injects a shared Store for distributed rate limiting.
func (h *Controller) WithRateLimitStore(s rl.Store) *Controller { h.rlStore = s; return h }

// Register mounts the notification endpoints under /v1.
func (h *Controller) Register(e *echo.Echo) {
	enqueuePolicy := rl.Policy{Name: "notifications:enqueue", Window: time.Minute, Limit: 60, Key: rl.KeyByIP("notifications:enqueue")}
	processPolicy := rl.Policy{Name: "notifications:process", Window: time.Minute, Limit: 10, Key: rl.KeyByIP("notifications:process")}

	var enqueueRL, processRL echo.MiddlewareFunc
	if h.rlStore != nil {
		enqueueRL = rl.MiddlewareWithStore(enqueuePolicy, h.rlStore)
		processRL = rl.MiddlewareWithStore(processPolicy, h.rlStore)
	} else {
		enqueueRL = rl.Middleware(enqueuePolicy)
		processRL = rl.Middleware(processPolicy)
	}

	e.POST("/v1/notifications/enqueue", h.enqueue, enqueueRL)
	e.POST("/v1/notifications/enqueue-bulk", h.enqueueBulk, enqueueRL)
	e.POST("/v1/notifications/process", h.process, processRL)
	e.GET("/v1/notifications/logs", h.listLogs)
	e.GET("/v1/unsubscribe", h.unsubscribe)
}

type enqueueRequest struct {
	TemplateID   string            `json:"template_id" validate:"required,uuid"`
	RecipientID  string            `json:"recipient_id" validate:"required,uuid"`
	ScheduledFor *time.Time        `json:"scheduled_for"`
	Priority     int               `json:"priority"`
	Metadata     map[string]string `json:"metadata"`
}

func (h *Controller) enqueue(c echo.Context) error {
	var req enqueueRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	templateID, _ := uuid.Parse(req.TemplateID)
	recipientID, _ := uuid.Parse(req.RecipientID)

	res, err := h.enqueuer.Enqueue(c.Request().Context(), templateID, recipientID, req.ScheduledFor, req.Priority, req.Metadata)
	if err != nil {
		h.log.Error().Err(err).Msg("enqueue failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": res.Reason})
	}
	status := http.StatusCreated
	if !res.Accepted {
		status = http.StatusOK
	}
	return c.JSON(status, res)
}

type bulkWindowRequest struct {
	StartHour     int `json:"start_hour" validate:"min=0,max=23"`
	EndHour       int `json:"end_hour" validate:"min=0,max=23"`
	SpreadMinutes int `json:"spread_minutes" validate:"required,min=1"`
}

type enqueueBulkRequest struct {
	TemplateID   string            `json:"template_id" validate:"required,uuid"`
	RecipientIDs []string          `json:"recipient_ids" validate:"required,min=1,dive,uuid"`
	Window       bulkWindowRequest `json:"window" validate:"required"`
	Priority     int               `json:"priority"`
	Metadata     map[string]string `json:"metadata"`
}

func (h *Controller) enqueueBulk(c echo.Context) error {
	var req enqueueBulkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	templateID, _ := uuid.Parse(req.TemplateID)
	ids := make([]uuid.UUID, 0, len(req.RecipientIDs))
	for _, raw := range req.RecipientIDs {
		id, _ := uuid.Parse(raw)
		ids = append(ids, id)
	}
	window := domain.BulkWindow{
		StartHour:     req.Window.StartHour,
		EndHour:       req.Window.EndHour,
		SpreadMinutes: req.Window.SpreadMinutes,
	}
	res := h.enqueuer.EnqueueBulk(c.Request().Context(), templateID, ids, window, req.Priority, req.Metadata)
	return c.JSON(http.StatusOK, res)
}

type processRequest struct {
	BatchSize int `json:"batch_size" validate:"omitempty,min=1,max=500"`
}

func (h *Controller) process(c echo.Context) error {
	var req processRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	batch := req.BatchSize
	if batch <= 0 {
		batch, _ = h.settings.GetInt(c.Request().Context(), sdomain.KeyDeliveryBatchSize, h.defaultBatchSize)
	}
	res := h.processor.ProcessQueue(c.Request().Context(), batch)
	return c.JSON(http.StatusOK, res)
}

func (h *Controller) listLogs(c echo.Context) error {
	recipientID, err := uuid.Parse(c.QueryParam("recipient_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "recipient_id is required"})
	}
	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	logs, err := h.logs.ListByRecipient(c.Request().Context(), recipientID, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("log listing failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, map[string]any{"logs": logs, "count": len(logs)})
}

func (h *Controller) unsubscribe(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "token required"})
	}
	if err := h.unsub.Apply(c.Request().Context(), token); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid or expired unsubscribe link"})
	}
	return c.HTML(http.StatusOK, "<p>You have been unsubscribed. You can close this page.</p>")
}
