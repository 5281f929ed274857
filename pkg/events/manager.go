// Package events fans committed ledger events out to websocket subscribers
// and keeps a bounded history for polling clients.
package events

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nftmarket/pkg/ledger"
)

// Client is one connected subscriber.
type Client struct {
	ID       string
	Registry ledger.Address // only events of this registry when set
	Conn     *websocket.Conn
	Send     chan ledger.Event
	Done     chan struct{}
}

func (c *Client) wants(e ledger.Event) bool {
	return c.Registry.IsZero() || c.Registry == e.Registry
}

// Hub implements ledger.Publisher. Publish never blocks: a subscriber whose
// queue is full misses the event.
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]*Client
	subscribers []ledger.Publisher

	histMu  sync.RWMutex
	history []ledger.Event
	next    int
	full    bool
}

func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = 1
	}
	return &Hub{
		clients: make(map[string]*Client),
		history: make([]ledger.Event, historySize),
	}
}

// Subscribe adds an in-process consumer. It is called synchronously from
// Publish and must not block.
func (h *Hub) Subscribe(p ledger.Publisher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.subscribers = append(h.subscribers, p)
}

func (h *Hub) AddClient(conn *websocket.Conn, registry ledger.Address) *Client {
	client := &Client{
		ID:       uuid.NewString(),
		Registry: registry,
		Conn:     conn,
		Send:     make(chan ledger.Event, 32),
		Done:     make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
	return client
}

func (h *Hub) RemoveClient(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.clients[id]; ok {
		close(client.Done)
		delete(h.clients, id)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

func (h *Hub) Publish(e ledger.Event) {
	h.remember(e)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.subscribers {
		s.Publish(e)
	}
	for _, client := range h.clients {
		if !client.wants(e) {
			continue
		}
		select {
		case client.Send <- e:
		case <-client.Done:
		default:
			zap.L().With(zap.String("client", client.ID), zap.String("event", e.ID)).Warn("Events: subscriber queue full, dropping event")
		}
	}
}

func (h *Hub) remember(e ledger.Event) {
	h.histMu.Lock()
	defer h.histMu.Unlock()

	h.history[h.next] = e
	h.next = (h.next + 1) % len(h.history)
	if h.next == 0 {
		h.full = true
	}
}

// History returns up to limit retained events, newest first. An empty
// eventType matches every type.
func (h *Hub) History(limit int, eventType ledger.EventType) []ledger.Event {
	h.histMu.RLock()
	defer h.histMu.RUnlock()

	size := h.next
	if h.full {
		size = len(h.history)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]ledger.Event, 0, limit)
	for i := 0; i < size && len(out) < limit; i++ {
		idx := (h.next - 1 - i + len(h.history)) % len(h.history)
		e := h.history[idx]
		if eventType != "" && e.Type != eventType {
			continue
		}
		out = append(out, e)
	}
	return out
}
