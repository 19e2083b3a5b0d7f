package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"LiqPulse/internal/domain/models"
	xlogger "LiqPulse/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// the viewer is served from anywhere
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub broadcasts engine events to connected WebSocket viewers. It implements
// EventSink; each client has a buffered send queue and a slow client is
// disconnected rather than allowed to stall the broadcast.
type Hub struct {
	log *xlogger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub(log *xlogger.Logger) *Hub {
	return &Hub{log: log, clients: make(map[*client]struct{})}
}

// Serve upgrades the request and attaches the client until it disconnects.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	cl := &client{conn: conn, send: make(chan []byte, 256)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return conn.Close()
	}
	h.clients[cl] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("ws viewer connected", xlogger.Int("clients", n))

	go h.writeLoop(cl)
	h.readLoop(cl)
	return nil
}

// Deliver broadcasts one event to every connected viewer.
func (h *Hub) Deliver(_ context.Context, ev models.Event) error {
	payload, err := json.Marshal(struct {
		Type string       `json:"type"`
		Data models.Event `json:"data"`
	}{Type: ev.EventType(), Data: ev})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- payload:
		default:
			// slow viewer: drop the connection, not the broadcast
			delete(h.clients, cl)
			close(cl.send)
		}
	}
	return nil
}

// Close disconnects every viewer.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
	}
	return nil
}

func (h *Hub) writeLoop(cl *client) {
	defer cl.conn.Close()
	for msg := range cl.send {
		if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readLoop drains client frames so pings are answered; viewers never send
// meaningful data.
func (h *Hub) readLoop(cl *client) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[cl]; ok {
			delete(h.clients, cl)
			close(cl.send)
		}
		h.mu.Unlock()
		cl.conn.Close()
	}()
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}
