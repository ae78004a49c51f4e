package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/statusforge/statusforge/internal/event"
	"github.com/statusforge/statusforge/internal/status"
	"go.uber.org/zap"
)

// Handler provides the WebSocket endpoint for live status updates.
type Handler struct {
	hub    *Hub
	bus    *event.Bus
	logger *zap.Logger
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes to status events.
func NewHandler(bus *event.Bus, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(logger),
		bus:    bus,
		logger: logger,
	}
	h.subscribeToEvents()
	return h
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/ws", h.handleStatusStream)
}

// handleStatusStream upgrades the connection and streams status changes.
func (h *Handler) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Dashboards connect from other origins; the stream is read-only.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		remote: r.RemoteAddr,
		send:   make(chan Message, 256),
		logger: h.logger,
	}

	h.hub.Register(client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// readPump blocks until client disconnects.
	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// subscribeToEvents forwards status-change events to connected clients.
func (h *Handler) subscribeToEvents() {
	if h.bus == nil {
		return
	}

	h.bus.Subscribe(status.TopicStatusChanged, func(_ context.Context, ev event.Event) {
		svc, ok := ev.Payload.(*status.Service)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageStatusChanged,
			Timestamp: ev.Timestamp,
			Data:      svc,
		})
	})

	h.logger.Info("subscribed to status events for WebSocket broadcasting")
}
