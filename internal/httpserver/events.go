package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mkotelnikov/storefront/internal/logging"
	"github.com/mkotelnikov/storefront/internal/notify"
)

type EventsHTTP struct {
	Registry *notify.Registry
}

// Stream holds the connection open and writes one JSON event per line.
// The subscription lives until the client disconnects, the idle timeout
// fires or the registry drops the connection for not keeping up.
func (h *EventsHTTP) Stream(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "events.stream")

	sub := h.Registry.Subscribe(currentUser(c), isAdmin(c))
	defer sub.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	res.Header().Set("Cache-Control", "no-cache")
	res.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(res)
	l.Info("event_stream_opened", "subscription_id", sub.ID(), "user_id", currentUser(c))

	for {
		select {
		case <-ctx.Done():
			l.Info("event_stream_closed", "subscription_id", sub.ID(), "reason", "client disconnected")
			return nil
		case <-sub.Done():
			l.Info("event_stream_closed", "subscription_id", sub.ID(), "reason", "subscription dropped")
			return nil
		case ev := <-sub.Events():
			if err := enc.Encode(ev); err != nil {
				l.Warn("event_stream_write_failed", "subscription_id", sub.ID(), "error", err)
				return nil
			}
			res.Flush()
		}
	}
}
