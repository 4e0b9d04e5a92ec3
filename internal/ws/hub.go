// Package ws keeps track of websocket clients and fans messages out to them.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/metrics"
)

const writeWait = 10 * time.Second

// Upgrader accepts connections from any origin. The server binds to
// localhost and is driven by a browser extension.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Client is one registered connection. Writes are serialised per client.
type Client struct {
	ID string

	conn    *websocket.Conn
	writeMu sync.Mutex
}

func NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{ID: id, conn: conn}
}

// WriteJSON marshals v and sends it as a text frame.
func (c *Client) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.write(data)
}

func (c *Client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame with code and reason, then closes the socket.
func (c *Client) Close(code int, reason string) error {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return c.conn.Close()
}

// Hub holds the clients of one endpoint keyed by id.
type Hub struct {
	name   string
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(name string, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		name:    name,
		logger:  logger.With(zap.String("hub", name)),
		clients: make(map[string]*Client),
	}
}

// Register adds c, replacing and closing a previous client with the same id.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	prev, replaced := h.clients[c.ID]
	h.clients[c.ID] = c
	h.mu.Unlock()

	if replaced && prev != c {
		_ = prev.Close(websocket.CloseNormalClosure, "replaced by a new connection")
	} else {
		metrics.WebsocketConnections.WithLabelValues(h.name).Inc()
	}
	h.logger.Info("client registered", zap.String("client_id", c.ID))
}

// Unregister removes the client with id. It is a no-op when c is no longer
// the registered client for that id.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	current, ok := h.clients[c.ID]
	if ok && current == c {
		delete(h.clients, c.ID)
	}
	h.mu.Unlock()

	if ok && current == c {
		metrics.WebsocketConnections.WithLabelValues(h.name).Dec()
		h.logger.Info("client unregistered", zap.String("client_id", c.ID))
	}
}

// Remove drops the client registered under id, if any.
func (h *Hub) Remove(id string) {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if ok {
		h.Unregister(c)
	}
}

// Get returns the client registered under id.
func (h *Hub) Get(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

// Len returns the number of registered clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Broadcast sends v to every client registered when the call starts. A
// failing client is logged and does not affect the others. It returns the
// number of successful deliveries.
func (h *Hub) Broadcast(v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("marshal broadcast: %w", err)
	}

	sent := 0
	for _, c := range h.snapshot() {
		if err := c.write(data); err != nil {
			h.logger.Error("error sending message to client", zap.String("client_id", c.ID), zap.Error(err))
			continue
		}
		sent++
	}
	h.logger.Debug("broadcast complete", zap.Int("sent", sent))
	return sent, nil
}

// ReadLoop passes every text frame of c to handle until the connection fails
// or ctx is cancelled. The client is unregistered and closed on return.
func (h *Hub) ReadLoop(ctx context.Context, c *Client, handle func(ctx context.Context, data []byte)) {
	defer func() {
		h.Unregister(c)
		_ = c.conn.Close()
	}()

	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				h.logger.Warn("connection closed unexpectedly", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		handle(ctx, data)
	}
}
