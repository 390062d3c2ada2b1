package httpapi

import (
	"io"

	"softphone-core/internal/callcontrol"

	"github.com/gin-gonic/gin"
)

// eventBufferSize bounds the per-client backlog. A slow consumer loses
// events rather than blocking the session; sinks must not block.
const eventBufferSize = 64

// StreamEvents is the SSE endpoint pushing typed session events to the UI.
// One subscription per request; the stream ends when the client goes away.
func (h Handlers) StreamEvents(c *gin.Context) {
	events := make(chan callcontrol.Event, eventBufferSize)

	unsubscribe := h.Call.Subscribe(func(ev callcontrol.Event) {
		select {
		case events <- ev:
		default:
			// drop on backpressure
		}
	})
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case ev := <-events:
			c.SSEvent(string(ev.Type), ev)
			return true
		}
	})
}
