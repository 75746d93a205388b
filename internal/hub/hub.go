// Package hub pushes "state changed" hints to browsers over websockets.
// The browser still reads the state itself through /api/state.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
)

const defaultBatchInterval = 50 * time.Millisecond

// Source is the session state as seen by the hub.
type Source interface {
	Subscribe() (<-chan uint64, func())
	Version() uint64
	TouchActivity()
}

type Hub struct {
	clients     map[string]*Client
	register    chan *clientRegistration
	unregister  chan *Client
	broadcast   chan []byte
	source      Source
	logger      *slog.Logger
	mu          sync.RWMutex
	rateLimiter *RateLimiter
	running     atomic.Bool
}

type clientRegistration struct {
	client  *Client
	initial []byte
}

func New(source Source, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *clientRegistration, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan []byte, 256),
		source:     source,
		logger:     logger,
	}
	h.rateLimiter = NewRateLimiter(defaultBatchInterval, h.BroadcastState)
	return h
}

func (h *Hub) Run(ctx context.Context) {
	versions, unsubscribe := h.source.Subscribe()
	defer unsubscribe()
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, c := range h.clients {
				c.close()
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return

		case v := <-versions:
			h.rateLimiter.Add(v)

		case reg := <-h.register:
			h.mu.Lock()
			h.clients[reg.client.id] = reg.client
			h.mu.Unlock()
			if reg.initial != nil {
				reg.client.enqueue(reg.initial)
			}
			go reg.client.writePump(ctx)
			go reg.client.readPump(ctx)
			h.logger.Debug("websocket client connected", "client", reg.client.id, "total", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.close()
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected", "client", client.id, "total", h.ClientCount())

		case data := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				if !c.enqueue(data) {
					h.logger.Debug("client send buffer full, dropping notification", "client", c.id)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", "error", err)
		return
	}

	client := newClient(conn, h)
	initial, _ := json.Marshal(StateMessage{Type: TypeState, Version: h.source.Version()})

	select {
	case h.register <- &clientRegistration{client: client, initial: initial}:
	default:
		h.logger.Warn("hub not accepting connections")
		conn.Close(websocket.StatusTryAgainLater, "server busy")
	}
}

// BroadcastState queues a state notification for every client.
func (h *Hub) BroadcastState(version uint64) {
	data, err := json.Marshal(StateMessage{Type: TypeState, Version: version})
	if err != nil {
		h.logger.Error("failed to marshal state message", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Debug("broadcast channel full, dropping state message")
	}
}

func (h *Hub) SendError(client *Client, message string) {
	h.sendTo(client, ErrorMessage{Type: TypeError, Message: message})
}

func (h *Hub) sendTo(client *Client, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}
	client.enqueue(data)
}

func (h *Hub) handlePing(client *Client) {
	h.source.TouchActivity()
	h.sendTo(client, StateMessage{Type: TypePong, Version: h.source.Version()})
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) unregisterClient(c *Client) {
	if !h.running.Load() {
		c.conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	select {
	case h.unregister <- c:
	default:
		h.logger.Warn("unregister channel full, forcing close", "client", c.id)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
}
