// Package replay streams game snapshots to websocket clients so a browser
// can watch an individual play.
package replay

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/neurosnake/game"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Message types sent to clients.
const (
	TypeConfig  = "config"
	TypeEpisode = "episode"
	TypeTick    = "tick"
)

// Message is the JSON envelope sent to clients.
type Message struct {
	Type       string         `json:"type"`
	Width      int            `json:"w,omitempty"`
	Height     int            `json:"h,omitempty"`
	Generation int            `json:"generation"`
	Fitness    float64        `json:"fitness,omitempty"`
	Snapshot   *game.Snapshot `json:"snapshot,omitempty"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub fans snapshots out to every connected client. It implements
// game.Observer; Observe never blocks and drops messages when the outgoing
// buffer is full.
type Hub struct {
	width, height int
	logger        *slog.Logger

	out        chan Message
	generation atomic.Int64
	dropped    atomic.Int64

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates a hub for a width x height grid.
func NewHub(width, height int, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		width:   width,
		height:  height,
		logger:  logger,
		out:     make(chan Message, 256),
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the client registered until its
// connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("replay client connected", "remote", r.RemoteAddr)

	if err := c.send(Message{Type: TypeConfig, Width: h.width, Height: h.height, Generation: int(h.generation.Load())}); err != nil {
		h.remove(c)
		return
	}

	// Clients only read; drain until the connection goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(c)
}

// Begin announces a new episode before its snapshots.
func (h *Hub) Begin(generation int, fitness float64) {
	h.generation.Store(int64(generation))
	h.enqueue(Message{Type: TypeEpisode, Generation: generation, Fitness: fitness})
}

// Observe queues a snapshot for broadcast.
func (h *Hub) Observe(s game.Snapshot) {
	h.enqueue(Message{Type: TypeTick, Generation: int(h.generation.Load()), Snapshot: &s})
}

func (h *Hub) enqueue(m Message) {
	select {
	case h.out <- m:
	default:
		h.dropped.Add(1)
	}
}

// Dropped returns the number of messages discarded because the buffer was
// full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run broadcasts queued messages until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case m := <-h.out:
			h.broadcast(m)
		}
	}
}

func (h *Hub) broadcast(m Message) {
	h.mu.Lock()
	list := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		list = append(list, c)
	}
	h.mu.Unlock()

	for _, c := range list {
		if err := c.send(m); err != nil {
			h.logger.Debug("replay client send failed", "err", err)
			h.remove(c)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	list := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		list = append(list, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range list {
		_ = c.conn.Close()
	}
}

// Paced wraps an observer so each snapshot is followed by a pause, making a
// replay watchable in real time. A zero delay returns o unchanged.
func Paced(o game.Observer, delay time.Duration) game.Observer {
	if delay <= 0 {
		return o
	}
	return game.ObserverFunc(func(s game.Snapshot) {
		o.Observe(s)
		time.Sleep(delay)
	})
}
