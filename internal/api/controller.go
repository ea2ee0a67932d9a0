// Package api exposes the gallery store over HTTP: request endpoints that
// trigger fetches, snapshot endpoints for the current state of each channel
// and Server-Sent Event streams that replay the latest state and follow it.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/pixalb/internal/errors"
	"github.com/tphakala/pixalb/internal/gallery"
	"github.com/tphakala/pixalb/internal/logger"
	"github.com/tphakala/pixalb/internal/observability"
)

// DefaultSSEHeartbeat is used when no heartbeat interval is configured.
const DefaultSSEHeartbeat = 30 * time.Second

// Pinger reports whether the backing cache database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller holds the dependencies of the API routes.
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group

	store     *gallery.Store
	health    Pinger
	metrics   *observability.Metrics
	heartbeat time.Duration
	log       logger.Logger
}

// Option customizes a Controller.
type Option func(*Controller)

// WithHealthCheck makes /healthz ping p.
func WithHealthCheck(p Pinger) Option {
	return func(c *Controller) { c.health = p }
}

// WithMetrics exposes m on /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithHeartbeat sets the SSE heartbeat interval.
func WithHeartbeat(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.heartbeat = d
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l.Module("api")
		}
	}
}

// NewController registers the API routes on e.
func NewController(e *echo.Echo, store *gallery.Store, opts ...Option) *Controller {
	c := &Controller{
		Echo:      e,
		store:     store,
		heartbeat: DefaultSSEHeartbeat,
		log:       logger.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Echo.GET("/healthz", c.HealthCheck)
	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}

	c.Group = c.Echo.Group("/api/v1")

	c.Group.POST("/overview", c.RequestOverview)
	c.Group.GET("/overview", c.GetOverview)
	c.Group.GET("/overview/events", c.StreamOverview)

	c.Group.POST("/detailview/:id", c.RequestDetailView)
	c.Group.GET("/detailview", c.GetDetailView)
	c.Group.GET("/detailview/events", c.StreamDetailView)
}

// OverviewRequest is the body of POST /api/v1/overview.
type OverviewRequest struct {
	Query string `json:"query"`
	Page  int    `json:"page"`
}

// RequestAccepted is returned when a fetch was started without waiting.
type RequestAccepted struct {
	Seq uint64 `json:"seq"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// RequestOverview starts an overview fetch. With ?wait=true the handler
// blocks until the outcome is published and returns it.
func (c *Controller) RequestOverview(ctx echo.Context) error {
	var req OverviewRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "query must not be empty", Kind: gallery.KindInvalidRequest.String()})
	}
	if req.Page < 1 {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "page must be at least 1", Kind: gallery.KindInvalidRequest.String()})
	}

	if !wantsWait(ctx) {
		seq := c.store.FetchOverview(req.Query, req.Page)
		return ctx.JSON(http.StatusAccepted, RequestAccepted{Seq: seq})
	}

	sub := c.store.Overview().Subscribe(ctx.Request().Context())
	seq := c.store.FetchOverview(req.Query, req.Page)
	return respondWithOutcome(ctx, sub, seq)
}

// RequestDetailView starts a detail view lookup for the image in the path.
func (c *Controller) RequestDetailView(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid image id", Kind: gallery.KindInvalidRequest.String()})
	}

	if !wantsWait(ctx) {
		seq := c.store.FetchDetailView(id)
		return ctx.JSON(http.StatusAccepted, RequestAccepted{Seq: seq})
	}

	sub := c.store.DetailView().Subscribe(ctx.Request().Context())
	seq := c.store.FetchDetailView(id)
	return respondWithOutcome(ctx, sub, seq)
}

// GetOverview returns the current overview state.
func (c *Controller) GetOverview(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.store.Overview().Current())
}

// GetDetailView returns the current detail view state.
func (c *Controller) GetDetailView(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.store.DetailView().Current())
}

// HealthCheck reports database reachability.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	if c.health != nil {
		reqCtx, cancel := context.WithTimeout(ctx.Request().Context(), 2*time.Second)
		defer cancel()
		if err := c.health.Ping(reqCtx); err != nil {
			c.log.WithContext(reqCtx).Warn("health check failed", logger.Error(err))
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":   "unhealthy",
				"database": "unreachable",
			})
		}
	}
	return ctx.JSON(http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": "connected",
	})
}

func wantsWait(ctx echo.Context) bool {
	wait, _ := strconv.ParseBool(ctx.QueryParam("wait"))
	return wait
}

func respondWithOutcome[T any](ctx echo.Context, sub <-chan gallery.State[T], seq uint64) error {
	state, err := gallery.Await(ctx.Request().Context(), sub, seq)
	if err != nil {
		if errors.Is(err, gallery.ErrClosed) {
			return ctx.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Kind: gallery.KindClosed.String()})
		}
		return err
	}
	return ctx.JSON(statusFor(state.Err), state)
}

// statusFor maps a gallery outcome to the HTTP status of a waited request.
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	kind, _ := gallery.KindOf(err)
	switch kind {
	case gallery.KindInvalidRequest:
		return http.StatusBadRequest
	case gallery.KindNotFound, gallery.KindMissingEntry, gallery.KindMissingPage, gallery.KindEntryCap:
		return http.StatusNotFound
	case gallery.KindNoConnection, gallery.KindClosed:
		return http.StatusServiceUnavailable
	case gallery.KindUnsuccessfulRequest:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
