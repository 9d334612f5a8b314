package network

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"norse/internal/input"
	"norse/internal/protocol"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsReadLimit    = 64 << 10
)

// WSSource connects to a WebSocket peer that streams input events and
// pushes them into a queue, reconnecting until closed.
type WSSource struct {
	url    string
	queue  *input.Queue
	logger *slog.Logger
	hello  protocol.HelloPayload

	// ReconnectDelay is the pause between connection attempts.
	ReconnectDelay time.Duration

	done chan struct{}
	wg   sync.WaitGroup

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSSource creates a source for the peer at rawURL (ws:// or wss://).
func NewWSSource(rawURL string, queue *input.Queue, hello protocol.HelloPayload, logger *slog.Logger) *WSSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSSource{
		url:            rawURL,
		queue:          queue,
		logger:         logger.With("component", "ws_source"),
		hello:          hello,
		ReconnectDelay: 5 * time.Second,
		done:           make(chan struct{}),
	}
}

// Start begins the connect loop in the background.
func (c *WSSource) Start() {
	c.wg.Add(1)
	go c.loop()
}

// IsConnected reports whether a connection is currently open.
func (c *WSSource) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *WSSource) loop() {
	defer c.wg.Done()
	for {
		c.connect()

		select {
		case <-c.done:
			return
		case <-time.After(c.ReconnectDelay):
			c.logger.Info("Attempting reconnection", "url", c.url)
		}
	}
}

func (c *WSSource) connect() {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		c.logger.Warn("Connection failed", "url", c.url, "error", err)
		return
	}

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		conn.Close()
		return
	default:
	}
	c.conn = conn
	c.mu.Unlock()
	c.logger.Info("Connected", "url", c.url)

	connDone := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(conn, connDone)
	}()

	c.readPump(conn)
	close(connDone)
	<-writerDone

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	conn.Close()
}

func (c *WSSource) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("Read error", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("Invalid message", "error", err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *WSSource) writePump(conn *websocket.Conn, connDone <-chan struct{}) {
	hello, err := protocol.NewMessage(protocol.TypeHello, c.hello)
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(hello); err != nil {
			c.logger.Warn("Hello failed", "error", err)
			return
		}
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-connDone:
			return
		case <-c.done:
			return
		}
	}
}

func (c *WSSource) handleMessage(msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeEvents:
		var payload protocol.EventsPayload
		if err := msg.Decode(&payload); err != nil {
			c.logger.Warn("Bad events payload", "error", err)
			return
		}
		for _, ev := range payload.Events {
			if !c.queue.Push(ev) {
				c.logger.Warn("Event queue full, dropping event", "type", ev.Type)
			}
		}
	case protocol.TypePing:
	default:
		c.logger.Debug("Ignoring message", "type", msg.Type)
	}
}

// Close stops the loop, closes any open connection and waits.
func (c *WSSource) Close() error {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return nil
	default:
	}
	close(c.done)
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}
	c.wg.Wait()
	return nil
}
