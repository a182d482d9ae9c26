package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/OpenChatGit/autosearch/internal/autosearch"
)

const (
	defaultEventBuffer    = 32
	defaultHeartbeatEvery = 15 * time.Second
)

// EventsHandler streams pipeline progress to clients over SSE. Each
// connection gets its own subscription; a client that stops reading is
// disconnected rather than allowed to stall the pipeline.
type EventsHandler struct {
	Manager   *autosearch.Manager
	Buffer    int           // pending events per connection (default 32)
	Heartbeat time.Duration // keep-alive comment interval (default 15s)
}

// Register mounts the handler under the given group.
func (h *EventsHandler) Register(g *echo.Group) {
	g.GET("/events", h.stream)
}

// stream pushes every pipeline event to the client as it happens
// @Summary Stream search progress events
// @Tags events
// @Produce text/event-stream
// @Router /api/events [get]
func (h *EventsHandler) stream(c echo.Context) error {
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	buffer := h.Buffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	events := make(chan autosearch.Event, buffer)
	dropped := make(chan struct{})
	var dropOnce sync.Once
	off := h.Manager.Events().OnAny(func(ev autosearch.Event) {
		select {
		case events <- ev:
		default:
			// Full buffer means the client is not reading; cut it
			// loose instead of blocking the emitter.
			dropOnce.Do(func() { close(dropped) })
		}
	})
	defer off()

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatEvery
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-dropped:
			return nil
		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
				return nil
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(resp, ": heartbeat\n\n"); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}
