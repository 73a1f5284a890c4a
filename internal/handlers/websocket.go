package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/common"
	"github.com/ternarybob/augur/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// subscriberBuffer is the event channel depth per websocket client.
// A client that cannot drain this many events loses the overflow.
const subscriberBuffer = 64

// WSMessage is the envelope for every websocket frame we send.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocketHandler streams run progress events to connected clients.
// Each connection gets its own event subscription; clients may filter
// to a single run with the ?run_id query parameter.
type WebSocketHandler struct {
	events interfaces.RunEventService
	logger arbor.ILogger

	mu      sync.Mutex
	clients int
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(events interfaces.RunEventService, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		events: events,
		logger: logger,
	}
}

// HandleWebSocket handles GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	runFilter := r.URL.Query().Get("run_id")

	subID, ch := h.events.Subscribe(subscriberBuffer)

	h.mu.Lock()
	h.clients++
	count := h.clients
	h.mu.Unlock()
	h.logger.Debug().Str("subscriber", subID).Msgf("WebSocket client connected (total: %d)", count)

	defer func() {
		h.events.Unsubscribe(subID)
		conn.Close()

		h.mu.Lock()
		h.clients--
		count := h.clients
		h.mu.Unlock()
		h.logger.Debug().Str("subscriber", subID).Msgf("WebSocket client disconnected (remaining: %d)", count)
	}()

	// Writer: pump subscribed events to the client until the
	// subscription closes or a write fails.
	done := make(chan struct{})
	common.SafeGo(h.logger, "ws-event-writer", func() {
		defer close(done)
		for ev := range ch {
			if runFilter != "" && ev.RunID != runFilter {
				continue
			}
			msg := WSMessage{Type: "run_event", Payload: ev}
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug().Err(err).Msg("WebSocket write failed, dropping client")
				return
			}
		}
	})

	// Reader: clients send nothing we act on, but reading detects
	// disconnects and keeps the connection alive.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Debug().Err(err).Msg("WebSocket closed unexpectedly")
			}
			break
		}
	}

	// Unblock the writer before returning so its goroutine ends with us.
	h.events.Unsubscribe(subID)
	<-done
}
