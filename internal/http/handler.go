package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"radar-watch-service/internal/domain/anpr"
	"radar-watch-service/internal/gateway"
	"radar-watch-service/internal/service"
)

// GatewaySession is the part of the gateway session exposed to operators.
type GatewaySession interface {
	State() gateway.State
	Ready() bool
	Reconnect() bool
	Instance() string
}

// HealthChecks probe the dependencies reported by /health. Nil checks are skipped.
type HealthChecks struct {
	Database func(ctx context.Context) error
	Bus      func() bool
}

type Handler struct {
	watchlist *service.WatchlistService
	session   GatewaySession
	checks    HealthChecks
	log       zerolog.Logger
}

// NewHandler builds the API handler. session is nil when the gateway is disabled.
func NewHandler(
	watchlist *service.WatchlistService,
	session GatewaySession,
	checks HealthChecks,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		watchlist: watchlist,
		session:   session,
		checks:    checks,
		log:       log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	r.GET("/health", h.health)

	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.GET("/watchlist", h.listEntries)
		protected.POST("/watchlist", h.createEntry)
		protected.GET("/watchlist/:id", h.getEntry)
		protected.PUT("/watchlist/:id", h.updateEntry)
		protected.DELETE("/watchlist/:id", h.deleteEntry)

		protected.GET("/alerts", h.listAlerts)

		protected.GET("/gateway/status", h.gatewayStatus)
		protected.POST("/gateway/reconnect", h.gatewayReconnect)
	}
}

func (h *Handler) listEntries(c *gin.Context) {
	var active *bool
	if a := strings.TrimSpace(c.Query("active")); a != "" {
		parsed, err := strconv.ParseBool(a)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("active must be true or false"))
			return
		}
		active = &parsed
	}
	limit, offset := pagination(c)

	entries, err := h.watchlist.ListEntries(c.Request.Context(), active, limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(entries))
}

func (h *Handler) createEntry(c *gin.Context) {
	var in service.EntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	entry, err := h.watchlist.CreateEntry(c.Request.Context(), in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(entry))
}

func (h *Handler) getEntry(c *gin.Context) {
	id, ok := entryID(c)
	if !ok {
		return
	}

	entry, err := h.watchlist.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(entry))
}

func (h *Handler) updateEntry(c *gin.Context) {
	id, ok := entryID(c)
	if !ok {
		return
	}

	var in service.EntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	entry, err := h.watchlist.UpdateEntry(c.Request.Context(), id, in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(entry))
}

func (h *Handler) deleteEntry(c *gin.Context) {
	id, ok := entryID(c)
	if !ok {
		return
	}

	if err := h.watchlist.DeleteEntry(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listAlerts(c *gin.Context) {
	var plateQuery *string
	if plate := strings.TrimSpace(c.Query("plate")); plate != "" {
		plateQuery = &plate
	}
	limit, offset := pagination(c)

	alerts, err := h.watchlist.ListAlerts(c.Request.Context(), plateQuery, limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}

	result := make([]anpr.AlertMessage, 0, len(alerts))
	for i := range alerts {
		result = append(result, anpr.NewAlertMessage(&alerts[i]))
	}
	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) gatewayStatus(c *gin.Context) {
	if h.session == nil {
		c.JSON(http.StatusOK, successResponse(gin.H{
			"status": "DISABLED",
		}))
		return
	}

	status := "NOT_READY"
	if h.session.Ready() {
		status = "READY"
	}
	state := h.session.State()
	c.JSON(http.StatusOK, successResponse(gin.H{
		"status":     status,
		"state":      state.String(),
		"inProgress": state.InProgress(),
		"instance":   h.session.Instance(),
	}))
}

func (h *Handler) gatewayReconnect(c *gin.Context) {
	if h.session == nil {
		c.JSON(http.StatusConflict, errorResponse("gateway is not configured"))
		return
	}

	started := h.session.Reconnect()
	message := "reconnect started"
	if !started {
		message = "provisioning already in progress"
	}
	c.JSON(http.StatusAccepted, successResponse(gin.H{
		"started": started,
		"message": message,
		"state":   h.session.State().String(),
	}))
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	code := http.StatusOK
	status := "ok"
	components := gin.H{}

	if h.checks.Database != nil {
		if err := h.checks.Database(ctx); err != nil {
			h.log.Warn().Err(err).Msg("database health check failed")
			components["database"] = "down"
			code, status = http.StatusServiceUnavailable, "down"
		} else {
			components["database"] = "up"
		}
	}
	if h.checks.Bus != nil {
		if h.checks.Bus() {
			components["nats"] = "up"
		} else {
			components["nats"] = "down"
			code, status = http.StatusServiceUnavailable, "down"
		}
	}

	switch {
	case h.session == nil:
		components["gateway"] = "disabled"
	case h.session.Ready():
		components["gateway"] = "up"
	default:
		components["gateway"] = strings.ToLower(h.session.State().String())
		if status == "ok" {
			status = "degraded"
		}
	}

	c.JSON(code, gin.H{
		"status":     status,
		"components": components,
	})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func entryID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse("invalid id"))
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (int, int) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
