// Package notify is the local notification surface: a per-profile
// permission state and a WebSocket hub that pushes events to the
// profile's connected clients.
package notify

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event types pushed to clients.
const (
	EventConnected         = "connected"
	EventNotification      = "notification"
	EventPermissionRequest = "permission-request"
	EventPermission        = "permission"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 54 * time.Second
	sendBuffer   = 16
)

// Event is the envelope written to clients.
type Event struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Client is one connected socket.
type Client struct {
	ProfileID string

	conn *websocket.Conn
	send chan Event
	done chan struct{}
	once sync.Once
}

// Hub fans events out to the connected clients of a profile.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

// Register attaches conn to profileID and starts its write loop.
func (h *Hub) Register(profileID string, conn *websocket.Conn) *Client {
	c := &Client{
		ProfileID: profileID,
		conn:      conn,
		send:      make(chan Event, sendBuffer),
		done:      make(chan struct{}),
	}

	h.mu.Lock()
	if h.clients[profileID] == nil {
		h.clients[profileID] = make(map[*Client]struct{})
	}
	h.clients[profileID][c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop()
	log.Debug().Str("component", "notify").Str("profile", profileID).Msg("client connected")
	return c
}

// Unregister detaches c and stops its write loop.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.ProfileID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.ProfileID)
		}
	}
	h.mu.Unlock()

	c.once.Do(func() { close(c.done) })
	log.Debug().Str("component", "notify").Str("profile", c.ProfileID).Msg("client disconnected")
}

// Connected reports how many clients profileID has.
func (h *Hub) Connected(profileID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[profileID])
}

// Broadcast queues ev for every client of profileID and returns how many
// accepted it. Clients with a full queue miss the event.
func (h *Hub) Broadcast(profileID string, ev Event) int {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().Unix()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients[profileID] {
		select {
		case c.send <- ev:
			delivered++
		default:
			log.Warn().Str("component", "notify").Str("profile", profileID).Str("event", ev.Type).Msg("client queue full, event dropped")
		}
	}
	return delivered
}

// Send queues ev for this client only.
func (c *Client) Send(ev Event) {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().Unix()
	}
	select {
	case c.send <- ev:
	case <-c.done:
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				log.Debug().Err(err).Str("component", "notify").Msg("write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
