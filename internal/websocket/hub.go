package websocket

import (
	"sort"
	"sync"

	"collab-rooms/pkg/logger"

	"github.com/samber/lo"
)

// Hub owns every live connection and the broadcast group of each room.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	groups  map[string]map[string]*Client  // roomID -> connID -> client
	joined  map[string]map[string]struct{} // connID -> roomIDs
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		groups:  make(map[string]map[string]*Client),
		joined:  make(map[string]map[string]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	logger.Debug("Connection %s registered", client.ID)
}

// Unregister forgets the connection and drops it from every group.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	for roomID := range h.joined[client.ID] {
		h.removeLocked(roomID, client.ID)
	}
	delete(h.clients, client.ID)
	client.close()
	logger.Debug("Connection %s unregistered", client.ID)
}

func (h *Hub) Client(connID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connID]
	return client, ok
}

// Join adds the connection to the room's broadcast group.
func (h *Hub) Join(roomID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	group := h.groups[roomID]
	if group == nil {
		group = make(map[string]*Client)
		h.groups[roomID] = group
	}
	group[client.ID] = client

	rooms := h.joined[client.ID]
	if rooms == nil {
		rooms = make(map[string]struct{})
		h.joined[client.ID] = rooms
	}
	rooms[roomID] = struct{}{}
}

// Leave removes the connection from the room's broadcast group.
func (h *Hub) Leave(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(roomID, connID)
}

// Dissolve empties the room's group and returns the connections it held.
func (h *Hub) Dissolve(roomID string) []*Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := lo.Values(h.groups[roomID])
	for _, client := range members {
		h.removeLocked(roomID, client.ID)
	}
	return members
}

func (h *Hub) InRoom(roomID, connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.groups[roomID][connID]
	return ok
}

// RoomsOf lists the rooms whose group holds the connection.
func (h *Hub) RoomsOf(connID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms := lo.Keys(h.joined[connID])
	sort.Strings(rooms)
	return rooms
}

func (h *Hub) GroupSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[roomID])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastRoom sends message to every connection in the room's group except
// the one with id except.
func (h *Hub) BroadcastRoom(roomID string, message []byte, except string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for connID, client := range h.groups[roomID] {
		if connID != except {
			h.deliver(client, message)
		}
	}
}

// BroadcastAll sends message to every registered connection except one.
func (h *Hub) BroadcastAll(message []byte, except string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for connID, client := range h.clients {
		if connID != except {
			h.deliver(client, message)
		}
	}
}

// Close shuts every connection down.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := lo.Values(h.clients)
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
	logger.Info("Closed %d connections", len(clients))
}

func (h *Hub) deliver(client *Client, message []byte) {
	if message == nil {
		return
	}
	if !client.Send(message) {
		logger.Debug("Dropped message for slow or closed connection %s", client.ID)
	}
}

func (h *Hub) removeLocked(roomID, connID string) {
	if group := h.groups[roomID]; group != nil {
		delete(group, connID)
		if len(group) == 0 {
			delete(h.groups, roomID)
		}
	}
	if rooms := h.joined[connID]; rooms != nil {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(h.joined, connID)
		}
	}
}
