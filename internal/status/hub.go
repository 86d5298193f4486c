package status

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kjannette/energy-market-backend/internal/models"
)

const writeWait = 5 * time.Second

// Hub pushes status changes to every connected websocket client.
type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
	snapshot func() models.TransactionStatus
	// last is the most recent broadcast. It is never older than the
	// snapshot because the board publishes inside its own lock.
	last []byte
}

var _ Broadcaster = (*Hub)(nil)

// NewHub creates a hub. allowOrigin mirrors the REST CORS setting; "*" or
// empty accepts any origin.
func NewHub(allowOrigin string) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
			if allowOrigin == "" || allowOrigin == "*" {
				return true
			}
			return r.Header.Get("Origin") == allowOrigin
		}},
	}
}

// SetSnapshot sets the source of the status sent to each new client.
func (h *Hub) SetSnapshot(fn func() models.TransactionStatus) {
	h.mu.Lock()
	h.snapshot = fn
	h.mu.Unlock()
}

func (h *Hub) Broadcast(st models.TransactionStatus) {
	msg, err := json.Marshal(st)
	if err != nil {
		fmt.Printf("[STATUS] marshal failed: %v\n", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = msg
	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			fmt.Printf("[STATUS] websocket write error: %v\n", err)
			c.Close()
			delete(h.clients, c)
		}
	}
}

// Handler upgrades the request and keeps the client until it goes away.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			fmt.Printf("[STATUS] websocket upgrade error: %v\n", err)
			return
		}

		h.mu.Lock()
		snap := h.snapshot
		h.mu.Unlock()

		var first []byte
		if snap != nil {
			first, _ = json.Marshal(snap())
		}

		// Sending the first status and registering happen under one lock so
		// no broadcast can fall between them.
		h.mu.Lock()
		if h.last != nil {
			first = h.last
		}
		if first != nil {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, first); err != nil {
				h.mu.Unlock()
				conn.Close()
				return
			}
		}
		h.clients[conn] = struct{}{}
		h.mu.Unlock()

		go func() {
			defer func() {
				h.mu.Lock()
				delete(h.clients, conn)
				h.mu.Unlock()
				conn.Close()
			}()
			// the server's read timeout does not apply to a long-lived stream
			conn.SetReadDeadline(time.Time{})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close drops every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		c.Close()
		delete(h.clients, c)
	}
}
