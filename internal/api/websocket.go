package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"norse/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// observers are local tools; auth is the bearer token
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// hub tracks observers and fans snapshots out to them.
type hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}

	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	stopOnce   sync.Once
}

// client is one connected observer
type client struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
	ip   string
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		logger:     logger,
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte),
		done:       make(chan struct{}),
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Observer connected", "remote", c.ip, "observers", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Observer disconnected", "remote", c.ip, "observers", n)

		case data := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// slow observer; drop it rather than stall the tick
					delete(h.clients, c)
					close(c.send)
					h.logger.Warn("Observer too slow, disconnected", "remote", c.ip)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *hub) publish(msg protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("Failed to marshal broadcast", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		ip:   r.RemoteAddr,
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump consumes observer messages until the connection drops.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("Observer read error", "remote", c.ip, "error", err)
			}
			return
		}
		c.handleMessage(data)
	}
}

// writePump forwards snapshots and keeps the connection alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

func (c *client) handleMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.hub.logger.Debug("Invalid observer message", "remote", c.ip, "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeHello:
		var hello protocol.HelloPayload
		if err := msg.Decode(&hello); err != nil {
			c.hub.logger.Debug("Invalid hello", "remote", c.ip, "error", err)
			return
		}
		c.hub.logger.Info("Observer hello", "remote", c.ip, "session", hello.Session, "version", hello.Version)
	case protocol.TypePing:
	default:
		c.hub.logger.Debug("Ignoring observer message", "remote", c.ip, "type", msg.Type)
	}
}
