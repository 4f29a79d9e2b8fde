package notify

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/hookrelay/pkg/logger"
)

// WSHandler bridges hub subscriptions to WebSocket connections. Each
// connection gets its own subscription scoped to the request context; dead
// connections are detected on write failure and pruned by closing the
// subscription.
type WSHandler struct {
	hub          *Hub
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pingInterval time.Duration
	log          *slog.Logger
}

// WSOption configures a WSHandler.
type WSOption func(*WSHandler)

// WithWriteTimeout bounds a single socket write. Default 10s.
func WithWriteTimeout(d time.Duration) WSOption {
	return func(h *WSHandler) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithPingInterval sets the keepalive ping cadence. Default 30s.
func WithPingInterval(d time.Duration) WSOption {
	return func(h *WSHandler) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithCheckOrigin overrides the origin check used during the upgrade.
func WithCheckOrigin(fn func(r *http.Request) bool) WSOption {
	return func(h *WSHandler) {
		if fn != nil {
			h.upgrader.CheckOrigin = fn
		}
	}
}

// WithWSLogger supplies the structured logger used by the handler.
func WithWSLogger(l *slog.Logger) WSOption {
	return func(h *WSHandler) {
		if l != nil {
			h.log = l
		}
	}
}

// NewWSHandler creates a WebSocket handler streaming hub messages.
func NewWSHandler(hub *Hub, opts ...WSOption) *WSHandler {
	h := &WSHandler{
		hub:          hub,
		writeTimeout: 10 * time.Second,
		pingInterval: 30 * time.Second,
		log:          slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.log.WarnContext(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	sub := h.hub.Subscribe(r.Context())
	defer func() { _ = sub.Close() }()

	// Read pump: clients only send control frames, but the connection must
	// still be drained to process close messages and pongs.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				_ = sub.Close()
				return
			}
		}
	}()

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	for {
		select {
		case env, ok := <-sub.C():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteJSON(env); err != nil {
				h.log.DebugContext(r.Context(), "websocket write failed, dropping connection", logger.Error(err))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
