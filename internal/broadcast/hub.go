// Package broadcast is an in-process pub/sub hub for dashboard and
// log-stream clients: a register/unregister/broadcast channel trio
// serviced by one goroutine, with a buffered send channel per client and
// typed frame kinds.
package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/logging"
)

// FrameKind tags a broadcast frame's payload shape.
type FrameKind string

const (
	FrameAgentUpdate   FrameKind = "agent_update"
	FrameTerminalOut   FrameKind = "terminal_output"
	FrameMetricsUpdate FrameKind = "metrics_update"
	FrameLog           FrameKind = "log"
	FrameHistory       FrameKind = "history"
)

// Frame is one broadcast message.
type Frame struct {
	Kind FrameKind `json:"kind"`
	Data any       `json:"data"`
}

const clientBuffer = 64

// Client is a single subscriber; Send is the channel the hub writes to and
// the transport-specific reader (typically a websocket connection)
// drains.
type Client struct {
	ID   string
	Send chan []byte

	// WantsLogs marks a client eligible for the initial history replay on
	// join.
	WantsLogs bool
}

// NewClient allocates a subscriber with a fresh id and buffered send
// channel, ready to Register.
func NewClient(wantsLogs bool) *Client {
	return &Client{
		ID:        uuid.New().String(),
		Send:      make(chan []byte, clientBuffer),
		WantsLogs: wantsLogs,
	}
}

// HistoryProvider supplies the backlog sent to a newly joined log
// subscriber.
type HistoryProvider func(ctx context.Context) []Frame

// Hub is the broadcast bus. Zero value is not usable; use New.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan Frame

	history HistoryProvider

	mu  sync.RWMutex
	log *logging.Logger
}

// New builds a Hub.
func New(log *logging.Logger) *Hub {
	if log == nil {
		log = logging.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Frame, 256),
		log:        log.With(zap.String("component", "broadcast_hub")),
	}
}

// SetHistoryProvider installs the backlog source used for FrameHistory on
// log-subscriber join.
func (h *Hub) SetHistoryProvider(p HistoryProvider) { h.history = p }

// Run drives the hub's main loop until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("broadcast hub started")
	defer h.log.Info("broadcast hub stopped")

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case c := <-h.register:
			h.addClient(ctx, c)
		case c := <-h.unregister:
			h.removeClient(c)
		case f := <-h.broadcast:
			h.deliver(f)
		}
	}
}

func (h *Hub) addClient(ctx context.Context, c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	if c.WantsLogs && h.history != nil {
		for _, f := range h.history(ctx) {
			h.sendTo(c, f)
		}
	}
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.Send)
		delete(h.clients, c)
	}
}

// deliver attempts to send to every subscriber, removing any whose buffer
// is full.
func (h *Hub) deliver(f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.Send <- h.encode(f):
		default:
			close(c.Send)
			delete(h.clients, c)
		}
	}
}

func (h *Hub) sendTo(c *Client, f Frame) {
	select {
	case c.Send <- h.encode(f):
	default:
	}
}

func (h *Hub) encode(f Frame) []byte {
	b, err := json.Marshal(f)
	if err != nil {
		h.log.Warn("failed to marshal broadcast frame", zap.Error(err))
		return []byte(`{}`)
	}
	return b
}

// Register admits a client to the hub.
func (h *Hub) Register(c *Client) { h.register <- c }

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// Broadcast enqueues a frame for delivery to every subscriber.
func (h *Hub) Broadcast(kind FrameKind, data any) {
	h.broadcast <- Frame{Kind: kind, Data: data}
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
