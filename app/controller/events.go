package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stagedoor-labs/kiosk-payments/app/notify"
	"github.com/stagedoor-labs/kiosk-payments/app/types"
)

const (
	defaultEventWait = 25 * time.Second
	maxEventWait     = 60 * time.Second
)

// EventsController long-polls the notice broker so the globe viewer can
// render shipment arcs without holding a websocket.
type EventsController struct {
	broker *notify.Broker
}

func NewEventsController(broker *notify.Broker) *EventsController {
	return &EventsController{broker: broker}
}

// NextNotice blocks until a payment notice arrives or the wait window
// closes. 200 carries the notice; 204 means "nothing yet, poll again".
func (c *EventsController) NextNotice(ctx echo.Context) error {
	wait := defaultEventWait
	if raw := ctx.QueryParam("timeout_ms"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms <= 0 {
			return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "invalid timeout_ms"})
		}
		wait = time.Duration(ms) * time.Millisecond
		if wait > maxEventWait {
			wait = maxEventWait
		}
	}

	notices, unsubscribe := c.broker.Subscribe()
	defer unsubscribe()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case notice, ok := <-notices:
		if !ok {
			return ctx.NoContent(http.StatusNoContent)
		}
		return ctx.JSON(http.StatusOK, notice)
	case <-timer.C:
		return ctx.NoContent(http.StatusNoContent)
	case <-ctx.Request().Context().Done():
		return nil
	}
}
