package realtime

import (
	"encoding/json"
	"sync"
	"time"
)

// Change feed operations
const (
	OpSet    = "set"
	OpDelete = "delete"
	OpClear  = "clear"
	OpCommit = "commit"
)

// Event describes a write that changed a cache namespace.
type Event struct {
	Op        string    `json:"op"`
	Namespace string    `json:"namespace"`
	Keys      []string  `json:"keys,omitempty"`
	At        time.Time `json:"at"`
}

// Client represents a single websocket client connection.
// The network conn is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Hub keeps the subscribers of every namespace and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[Client]struct{}
}

var hubInstance *Hub
var once sync.Once

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[Client]struct{})}
}

// GetHub returns a singleton hub instance.
func GetHub() *Hub {
	once.Do(func() {
		hubInstance = NewHub()
	})
	return hubInstance
}

// Register subscribes a client to a namespace.
func (h *Hub) Register(namespace string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[namespace]; !ok {
		h.clients[namespace] = make(map[Client]struct{})
	}
	h.clients[namespace][client] = struct{}{}
}

// Unregister removes a client; an empty namespace is dropped.
func (h *Hub) Unregister(namespace string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[namespace]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, namespace)
		}
	}
}

// Subscribers returns the number of clients on a namespace.
func (h *Hub) Subscribers(namespace string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[namespace])
}

// Broadcast sends a raw message to all clients of a namespace and returns how
// many accepted it. Failed clients are cleaned up by their handler.
func (h *Hub) Broadcast(namespace string, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for c := range h.clients[namespace] {
		if c.Send(message) {
			sent++
		}
	}
	return sent
}

// Publish encodes e as JSON and broadcasts it on its namespace. A zero At is
// set to the current time.
func (h *Hub) Publish(e Event) int {
	if h == nil {
		return 0
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	msg, err := json.Marshal(e)
	if err != nil {
		return 0
	}
	return h.Broadcast(e.Namespace, msg)
}
