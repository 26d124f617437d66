// Package websocket pushes notification events to dashboard clients.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"CompetitorInsights/internal/notify"
)

// Message types sent to clients.
const (
	TypeShow  = "notification.show"
	TypeHide  = "notification.hide"
	TypeBadge = "badge.bump"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// ErrBackpressure is returned when the broadcast queue is full.
var ErrBackpressure = errors.New("websocket broadcast queue full")

// Message is the envelope written to clients, one per frame.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is what clients may send back.
type ClientMessage struct {
	Action string `json:"action"`
	ID     string `json:"id"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	logger     *slog.Logger
	mu         sync.RWMutex

	dismissMu sync.Mutex
	onDismiss map[string]func()
}

var (
	_ notify.Popups = (*Hub)(nil)
	_ notify.Badges = (*Hub)(nil)
)

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewHub creates a hub; call Run before serving connections.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    map[*client]struct{}{},
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
		onDismiss:  map[string]func(){},
	}
}

// Run is the hub main loop. It closes every client when ctx ends.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", "client_count", count)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", "client_count", count)

		case message := <-h.broadcast:
			h.fanout(message)

		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return nil
		}
	}
}

func (h *Hub) fanout(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- message:
		default:
			close(c.send)
			delete(h.clients, c)
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Show broadcasts a pop-up and remembers its dismissal callback.
func (h *Hub) Show(_ context.Context, req notify.RenderRequest) error {
	if req.OnDismiss != nil {
		h.dismissMu.Lock()
		h.onDismiss[req.ID] = req.OnDismiss
		h.dismissMu.Unlock()
	}
	return h.publish(TypeShow, req)
}

// Hide tells clients to withdraw a pop-up.
func (h *Hub) Hide(_ context.Context, id string) error {
	h.dismissMu.Lock()
	delete(h.onDismiss, id)
	h.dismissMu.Unlock()
	return h.publish(TypeHide, map[string]string{"id": id})
}

// Bump broadcasts a passive "new data" update.
func (h *Hub) Bump(_ context.Context, update notify.BadgeUpdate) error {
	return h.publish(TypeBadge, update)
}

func (h *Hub) publish(msgType string, data any) error {
	payload, err := json.Marshal(Message{Type: msgType, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", msgType, err)
	}
	select {
	case h.broadcast <- payload:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping message", "type", msgType)
		return ErrBackpressure
	}
}

// dismiss runs the callback registered for id, if any.
func (h *Hub) dismiss(id string) bool {
	h.dismissMu.Lock()
	fn, ok := h.onDismiss[id]
	delete(h.onDismiss, id)
	h.dismissMu.Unlock()
	if ok {
		fn()
	}
	return ok
}

// ServeWS upgrades the request and registers the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket connection", "error", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, 64)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket connection error", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.logger.Warn("invalid client message", "error", err)
			continue
		}
		if msg.Action == "dismiss" && msg.ID != "" {
			c.hub.dismiss(msg.ID)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
