package web

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendQueueSize  = 256
)

// Client is the middleman between one websocket connection and the runtime.
// It implements contract.ConnectionHandle: Push enqueues a frame without
// blocking; the write pump is the only goroutine that touches the wire.
type Client struct {
	log    *slog.Logger
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	closed atomic.Bool
}

func NewClient(log *slog.Logger, conn *websocket.Conn) *Client {
	return &Client{
		log:  log,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

// Push enqueues one frame for delivery. A closed connection or a saturated
// queue returns an error; the caller may only log it, since the message is
// already durable and history will catch the receiver up.
func (c *Client) Push(payload []byte) error {
	if c.closed.Load() {
		return fmt.Errorf("connection closed")
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return fmt.Errorf("send queue full (%d frames)", sendQueueSize)
	}
}

// Close shuts the underlying connection down. Safe to call more than once:
// the registry closes superseded handles while the pumps close their own.
func (c *Client) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.done)
		_ = c.conn.Close()
	}
}

// writePump owns all writes: queued frames and keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.Debug("Failed to set write deadline", "error", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("Frame write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames (sends go over REST) but keeps the
// connection honest: pong handling and close detection live here.
// onClose runs when the connection dies.
func (c *Client) readPump(onClose func()) {
	defer func() {
		onClose()
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Debug("Failed to set read deadline", "error", err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Unexpected websocket close", "error", err)
			}
			return
		}
	}
}
