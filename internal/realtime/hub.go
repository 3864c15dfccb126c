package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/adwaith-rk/threadly/internal/messaging"
)

// Event is the wire form pushed to subscribers after a successful write. The
// payload is the full server-side record: subscribers run their own display
// logic, the hub decides nothing about delivery.
type Event struct {
	Event   string `json:"event"`
	Scope   string `json:"scope"`
	Payload any    `json:"payload"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans written records out to websocket subscribers grouped by scope key.
// Delivery is fire-and-forget: a subscriber that cannot keep up is dropped.
type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		rooms: make(map[string]map[*client]struct{}),
	}
}

// Publish implements messaging.Publisher.
func (h *Hub) Publish(scope messaging.Scope, event string, payload any) {
	data, err := json.Marshal(Event{Event: event, Scope: scope.Key(), Payload: payload})
	if err != nil {
		log.Printf("realtime: marshal event %s: %v", event, err)
		return
	}

	h.mu.RLock()
	room := h.rooms[scope.Key()]
	var stalled []*client
	for c := range room {
		select {
		case c.send <- data:
		default:
			stalled = append(stalled, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stalled {
		h.drop(scope.Key(), c)
	}
}

// ServeHTTP upgrades the request and subscribes it to the scope named by the
// "scope" query parameter until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	scopeKey := r.URL.Query().Get("scope")
	if scopeKey == "" {
		http.Error(w, "missing scope", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("realtime: upgrade: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 32)}
	h.mu.Lock()
	if h.rooms[scopeKey] == nil {
		h.rooms[scopeKey] = make(map[*client]struct{})
	}
	h.rooms[scopeKey][c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(scopeKey, c)
	h.readLoop(scopeKey, c)
}

func (h *Hub) writeLoop(scopeKey string, c *client) {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.drop(scopeKey, c)
			return
		}
	}
}

// readLoop discards inbound frames; clients only listen. It exists to detect
// closed connections.
func (h *Hub) readLoop(scopeKey string, c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(scopeKey, c)
			return
		}
	}
}

func (h *Hub) drop(scopeKey string, c *client) {
	h.mu.Lock()
	room := h.rooms[scopeKey]
	if _, ok := room[c]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, scopeKey)
		}
		close(c.send)
		c.conn.Close()
	}
	h.mu.Unlock()
}
