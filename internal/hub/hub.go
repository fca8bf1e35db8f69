package hub

import (
	"encoding/json"
	"sync"

	pkglog "github.com/RUSHIKESH1209/Nexable/pkg/log"
)

// Hub tracks every live websocket connection, registered or not, and fans
// presence broadcasts out to all of them. Registration here is transport
// membership only; the user-level registry is a separate concern.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client // conn id -> client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a freshly upgraded connection to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID()] = client
	h.mu.Unlock()

	l := pkglog.L()
	l.Debug().Str(pkglog.FieldConnID, client.ID()).Msg("client connected")
}

// Unregister removes a connection and closes its send channel. Safe to
// call more than once for the same client.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client.ID()]
	if ok {
		delete(h.clients, client.ID())
	}
	h.mu.Unlock()

	if ok {
		client.close()
		l := pkglog.L()
		l.Debug().Str(pkglog.FieldConnID, client.ID()).Msg("client disconnected")
	}
}

// Broadcast sends v to every live connection, best-effort. A client whose
// buffer is full is dropped; it has stopped draining its socket.
func (h *Hub) Broadcast(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if !client.Enqueue(data) {
			l := pkglog.L()
			l.Warn().Str(pkglog.FieldConnID, client.ID()).Msg("dropping slow client")
			go h.Unregister(client)
		}
	}
	return nil
}

// ClientCount reports the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop closes every connection. Used during shutdown.
func (h *Hub) Stop() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
}
