package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/RUSHIKESH1209/Nexable/internal/config"
	pkglog "github.com/RUSHIKESH1209/Nexable/pkg/log"
)

// Client is one live websocket connection. A connection starts unbound;
// a successful register binds it to a user id for the rest of its life.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte

	id  string
	cfg config.WebSocketConfig

	mu     sync.Mutex
	userID string
	closed bool
}

func NewClient(id string, hub *Hub, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{
		Hub:  hub,
		Conn: conn,
		Send: make(chan []byte, buffer),
		id:   id,
		cfg:  cfg,
	}
}

// ID identifies this connection uniquely within the process.
func (c *Client) ID() string { return c.id }

// UserID returns the bound user id, or "" while unregistered.
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// Bind binds the connection to a user. Binding the same user again is a
// no-op; binding a different user is refused.
func (c *Client) Bind(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userID != "" && c.userID != userID {
		return false
	}
	c.userID = userID
	return true
}

// Enqueue hands data to the write pump without blocking. A full buffer or
// a closed connection drops the frame; delivery here is best-effort by
// contract.
func (c *Client) Enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// SendMessage marshals v and enqueues it on this connection.
func (c *Client) SendMessage(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Enqueue(data)
	return nil
}

// close shuts the send channel exactly once. Called by the hub only.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// ReadPump reads inbound frames and hands them to handler. It returns when
// the transport closes, after unregistering the client from the hub.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := pkglog.L()
				l.Debug().Str(pkglog.FieldConnID, c.id).Err(err).Msg("websocket read error")
			}
			break
		}
		handler(c, message)
	}
}

// WritePump drains the send channel onto the wire and keeps the connection
// alive with pings. One writer goroutine per connection preserves the
// sender's emission order.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
