package ws

import (
	"context"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one live connection belonging to an authenticated user.
type Client struct {
	UserID string
	Conn   Conn
}

type envelope struct {
	userIDs []string
	message []byte
}

// Hub fans ledger events out to the connections of the users involved.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	direct     chan envelope
	done       chan struct{}
	log        *zap.Logger
	mutex      sync.Mutex
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan envelope, 256),
		done:       make(chan struct{}),
		log:        log.Named("ws"),
	}
}

// Register adds c to the hub. It reports false, and closes the connection,
// once Run has returned.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		c.Conn.Close()
		return false
	}
}

// Unregister removes c and closes its connection. It returns immediately
// when Run has already returned.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// SendToUsers queues message for every connection of the given users. It
// never blocks; when the queue is full the message is dropped.
func (h *Hub) SendToUsers(userIDs []string, message []byte) {
	select {
	case h.direct <- envelope{userIDs: userIDs, message: message}:
	default:
		h.log.Warn("notification queue full, dropping message", zap.Strings("user_ids", userIDs))
	}
}

// Run serves registrations and deliveries until ctx is done, then closes
// every remaining connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case c := <-h.register:
			h.mutex.Lock()
			if h.clients[c.UserID] == nil {
				h.clients[c.UserID] = make(map[*Client]struct{})
			}
			h.clients[c.UserID][c] = struct{}{}
			h.mutex.Unlock()
			h.log.Debug("client connected", zap.String("user_id", c.UserID))

		case c := <-h.unregister:
			h.mutex.Lock()
			h.remove(c)
			h.mutex.Unlock()

		case env := <-h.direct:
			h.mutex.Lock()
			for _, userID := range env.userIDs {
				for c := range h.clients[userID] {
					if err := c.Conn.WriteMessage(websocket.TextMessage, env.message); err != nil {
						h.log.Debug("write failed, dropping client", zap.String("user_id", userID), zap.Error(err))
						h.remove(c)
					}
				}
			}
			h.mutex.Unlock()
		}
	}
}

// ClientCount reports the number of live connections for userID.
func (h *Hub) ClientCount(userID string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients[userID])
}

// remove must be called with the mutex held.
func (h *Hub) remove(c *Client) {
	conns, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.UserID)
	}
	c.Conn.Close()
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for _, conns := range h.clients {
		for c := range conns {
			c.Conn.Close()
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
}
