// Package wsevents is a live migration-event stream: one event (raw bytes
// handed to Broadcast) is sent per completed, failed, or permanently-failed
// migration, and any
// number of websocket clients can watch a tiering pass as it happens. It
// has no write path back into the engine.
package wsevents

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message is one event broadcast to connected clients.
type Message struct {
	Type      string    `json:"type"`
	Data      []byte    `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is one connected websocket subscriber.
type Client struct {
	ID        string
	UserID    string
	Connected time.Time
	Send      chan []byte
	conn      *websocket.Conn
}

// Hub tracks connected clients and fans out broadcasts to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.ID)
}

// ClientCount returns the number of currently registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ListClients returns a snapshot of all registered clients.
func (h *Hub) ListClients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

// GetClient looks up a client by ID.
func (h *Hub) GetClient(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

// Broadcast sends data to every registered client's Send channel. A client
// whose Send buffer is full is skipped rather than blocking the broadcast.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.Send == nil {
			continue
		}
		select {
		case c.Send <- data:
		default:
		}
	}
}

// SendToClient sends data directly to one client by ID.
func (h *Hub) SendToClient(id string, data []byte) error {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return errors.New("wsevents: client not found")
	}

	select {
	case c.Send <- data:
		return nil
	default:
		return errors.New("wsevents: client send buffer full")
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades the connection and registers a Client, writing every
// broadcast message to the socket until the client disconnects. Intended to
// be mounted at a path like /ws/events.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, clientID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:        clientID,
		Connected: time.Now(),
		Send:      make(chan []byte, 32),
		conn:      conn,
	}
	h.Register(client)
	defer func() {
		h.Unregister(client)
		conn.Close()
	}()

	for data := range client.Send {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}
	}
	return nil
}
