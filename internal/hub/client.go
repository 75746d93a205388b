package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

const (
	pingInterval = 30 * time.Second
	readLimit    = 4096
)

// Client is one websocket connection. send is never closed; done marks
// the client as gone so late writers drop their message instead.
type Client struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	hub       *Hub
}

func newClient(conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 16),
		done: make(chan struct{}),
		hub:  hub,
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// enqueue queues data for the write pump. It reports false when the client
// is closed or its buffer is full.
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(readLimit)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && ctx.Err() == nil {
				c.hub.logger.Debug("websocket read failed", "client", c.id, "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.SendError(c, "invalid message format")
			continue
		}

		switch msg.Type {
		case TypePing:
			c.hub.handlePing(c)
		default:
			c.hub.SendError(c, "unknown message type: "+msg.Type)
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case msg := <-c.send:
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}
