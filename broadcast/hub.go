// Package broadcast pushes session events to every open tab of a browser
// session over websockets.
package broadcast

import (
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event types.
const (
	EventLogout  = "logout"
	EventRefresh = "refresh"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 10 * time.Second
	sendBuffer = 8
)

// Event is the only message the hub sends.
type Event struct {
	Type string `json:"type"`
	Page string `json:"page,omitempty"`
}

// Client is one websocket connection.
type Client struct {
	conn *websocket.Conn
	sid  string
	send chan Event
}

// Hub keeps clients per session id.
type Hub struct {
	mu       sync.Mutex
	clients  map[string]map[*Client]bool
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub builds a hub. allowed is the set of accepted Origin values; an
// empty set accepts same-host requests only.
func NewHub(allowed []string, logger *zap.Logger) *Hub {
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		origins[o] = true
	}
	return &Hub{
		clients: make(map[string]map[*Client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || origins[origin] {
					return true
				}
				return origin == "http://"+r.Host || origin == "https://"+r.Host
			},
		},
		logger: logger,
	}
}

// Serve upgrades the request and subscribes it to sid until it closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sid string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		h.logger.Error("Error upgrading WebSocket", zap.Error(err))
		return
	}
	client := &Client{conn: conn, sid: sid, send: make(chan Event, sendBuffer)}
	h.add(client)
	h.logger.Info("New client added", zap.String("sid", sid))

	go h.writePump(client)
	h.readPump(client)
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.sid]
	if !ok {
		set = make(map[*Client]bool)
		h.clients[c.sid] = set
	}
	set[c] = true
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.sid]
	if !ok || !set[c] {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.sid)
	}
}

// readPump only watches for close and pong; clients never send events.
func (h *Hub) readPump(c *Client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		h.logger.Info("Client removed", zap.String("sid", c.sid))
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			msg, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("Failed to encode event", zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Error("Failed to send event", zap.String("sid", c.sid), zap.Error(err))
				return
			}
			if ev.Type == EventLogout {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "logout"))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Error("Error sending ping", zap.Error(err))
				return
			}
		}
	}
}

// Publish sends ev to every client of sid. Slow clients miss events
// rather than block the publisher.
func (h *Hub) Publish(sid string, ev Event) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for c := range h.clients[sid] {
		select {
		case c.send <- ev:
			n++
		default:
			h.logger.Warn("dropping event for slow client", zap.String("sid", sid), zap.String("type", ev.Type))
		}
	}
	return n
}

// SessionInvalidated tells every tab of sid to go back to login.
func (h *Hub) SessionInvalidated(sid string) {
	sockets := h.Subscribers(sid)
	if sockets == 0 {
		return
	}
	n := h.Publish(sid, Event{Type: EventLogout})
	h.logger.Info("logout pushed to open tabs", zap.Int("sockets", sockets), zap.Int("delivered", n))
}

// Refreshed tells the session's tabs that page changed and should reload.
func (h *Hub) Refreshed(sid, page string) {
	h.Publish(sid, Event{Type: EventRefresh, Page: page})
}

// Subscribers returns how many connections sid has.
func (h *Hub) Subscribers(sid string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[sid])
}
