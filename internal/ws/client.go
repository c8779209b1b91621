package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"chat-gateway/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxFrameSize   = 64 * 1024
	closeGraceWait = time.Second
)

// Client is one websocket connection. It satisfies presence.Peer.
type Client struct {
	conn    *websocket.Conn
	info    ConnInfo
	send    chan []byte
	limiter *rate.Limiter

	mu     sync.Mutex
	closed bool
	reason string
}

func newClient(conn *websocket.Conn, info ConnInfo, opts Options) *Client {
	return &Client{
		conn:    conn,
		info:    info,
		send:    make(chan []byte, opts.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(opts.EventsPerSecond), opts.EventBurst),
	}
}

func (c *Client) ID() string {
	return c.info.ConnID
}

// Send queues an event for the write pump. A client whose buffer is full is
// too slow to keep up and gets disconnected.
func (c *Client) Send(event protocol.Outbound) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("websocket encode error conn_id=%s type=%s: %v", c.info.ConnID, event.Type, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		log.Printf("websocket send buffer full conn_id=%s", c.info.ConnID)
		c.closeLocked("send buffer full")
	}
}

// Close stops the write pump, which then closes the socket.
func (c *Client) Close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked(reason)
}

func (c *Client) closeLocked(reason string) {
	if c.closed {
		return
	}
	c.closed = true
	c.reason = reason
	close(c.send)
}

func (c *Client) closeReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// allow reports whether another inbound event fits the rate limit.
func (c *Client) allow() bool {
	return c.limiter.Allow()
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, c.closeReason())
				_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGraceWait))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("websocket write error conn_id=%s: %v", c.info.ConnID, err)
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
