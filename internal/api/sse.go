package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/pixalb/internal/gallery"
	"github.com/tphakala/pixalb/internal/logger"
)

const sseWriteTimeout = 10 * time.Second

// StreamOverview streams overview states as Server-Sent Events.
func (c *Controller) StreamOverview(ctx echo.Context) error {
	return streamStates(c, ctx, "overview", c.store.Overview())
}

// StreamDetailView streams detail view states as Server-Sent Events.
func (c *Controller) StreamDetailView(ctx echo.Context) error {
	return streamStates(c, ctx, "detailview", c.store.DetailView())
}

// streamStates replays the current state of b and forwards every later state
// until the client goes away or the store closes.
func streamStates[T any](c *Controller, ctx echo.Context, channel string, b *gallery.Broadcast[T]) error {
	header := ctx.Response().Header()
	header.Set(echo.HeaderContentType, "text/event-stream")
	header.Set(echo.HeaderCacheControl, "no-cache")
	header.Set(echo.HeaderConnection, "keep-alive")
	ctx.Response().WriteHeader(http.StatusOK)

	clientID := uuid.NewString()
	reqCtx := ctx.Request().Context()
	log := c.log.WithContext(reqCtx).With(
		logger.String("client_id", clientID),
		logger.String("channel", channel))

	sub := b.Subscribe(reqCtx)
	log.Info("SSE client connected", logger.String("ip", ctx.RealIP()))
	defer log.Info("SSE client disconnected")

	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case state, ok := <-sub:
			if !ok {
				return nil
			}
			if err := sendSSEMessage(ctx, "state", state); err != nil {
				log.Debug("failed to send SSE state", logger.Error(err))
				return nil
			}

		case <-ticker.C:
			if err := sendSSEMessage(ctx, "heartbeat", map[string]any{
				"timestamp":   time.Now().Unix(),
				"subscribers": b.Subscribers(),
			}); err != nil {
				log.Debug("SSE heartbeat failed, client likely disconnected", logger.Error(err))
				return nil
			}

		case <-reqCtx.Done():
			return nil
		}
	}
}

// sendSSEMessage writes one event and flushes it.
func sendSSEMessage(ctx echo.Context, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE data: %w", err)
	}

	rc := http.NewResponseController(ctx.Response().Writer)
	// not every writer supports deadlines
	_ = rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout))

	if _, err := fmt.Fprintf(ctx.Response(), "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("failed to write SSE message: %w", err)
	}
	ctx.Response().Flush()
	return nil
}
