// Package ws implements the WebSocket chat demo: a registry of connected
// clients keyed by client id, and the echo handler that feeds it.
package ws

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Conn is the write side of a connected client.
type Conn interface {
	WriteText(ctx context.Context, msg string) error
}

// Hub tracks live connections. It is safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]Conn
	log     *logrus.Logger
}

// NewHub returns an empty hub.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{clients: make(map[string]Conn), log: log}
}

// Register adds conn under id. It returns false, leaving the hub unchanged,
// when id is already connected.
func (h *Hub) Register(id string, conn Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.clients[id]; exists {
		return false
	}
	h.clients[id] = conn
	h.log.WithFields(logrus.Fields{"client_id": id, "clients": len(h.clients)}).Info("websocket client connected")
	return true
}

// Unregister removes id if present.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.clients[id]; !exists {
		return
	}
	delete(h.clients, id)
	h.log.WithFields(logrus.Fields{"client_id": id, "clients": len(h.clients)}).Info("websocket client disconnected")
}

// Send writes msg to a single client. Unknown ids are ignored.
func (h *Hub) Send(ctx context.Context, id, msg string) error {
	h.mu.RLock()
	conn, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := conn.WriteText(ctx, msg); err != nil {
		return fmt.Errorf("send to %s: %w", id, err)
	}
	return nil
}

// Broadcast writes msg to every client except exclude, concurrently, and
// waits for all writes. Failed writes are logged; the reader loop of that
// client will notice the broken connection.
func (h *Hub) Broadcast(ctx context.Context, msg, exclude string) {
	h.mu.RLock()
	targets := make(map[string]Conn, len(h.clients))
	for id, conn := range h.clients {
		if id != exclude {
			targets[id] = conn
		}
	}
	h.mu.RUnlock()

	var wg sync.WaitGroup
	for id, conn := range targets {
		wg.Add(1)
		go func(id string, conn Conn) {
			defer wg.Done()
			if err := conn.WriteText(ctx, msg); err != nil {
				h.log.WithError(err).WithField("client_id", id).Warn("websocket broadcast failed")
			}
		}(id, conn)
	}
	wg.Wait()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Clients returns the connected ids in sorted order.
func (h *Hub) Clients() []string {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
