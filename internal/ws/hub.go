package ws

import "sync"

// Metadata is everything the server remembers about one live socket. The
// session id (GID) is the anti-leak token checked on every message.
type Metadata struct {
	UID    string
	GID    string
	RoomID string
	Name   string
	Color  string
}

// Hub is the connection registry: socket -> identity, plus a per-room
// index so fan-out never scans unrelated connections.
type Hub struct {
	mu    sync.RWMutex
	conns map[*clientConn]Metadata
	rooms map[string]map[*clientConn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[*clientConn]Metadata),
		rooms: make(map[string]map[*clientConn]struct{}),
	}
}

func (h *Hub) Bind(c *clientConn, meta Metadata) {
	h.mu.Lock()
	h.conns[c] = meta
	set, ok := h.rooms[meta.RoomID]
	if !ok {
		set = make(map[*clientConn]struct{})
		h.rooms[meta.RoomID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Lookup(c *clientConn) (Metadata, bool) {
	h.mu.RLock()
	meta, ok := h.conns[c]
	h.mu.RUnlock()
	return meta, ok
}

// Unbind retires a connection. Calling it twice is a no-op; duplicate
// close notifications must not double-retire.
func (h *Hub) Unbind(c *clientConn) (Metadata, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	meta, ok := h.conns[c]
	if !ok {
		return Metadata{}, false
	}
	delete(h.conns, c)
	if set, found := h.rooms[meta.RoomID]; found {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, meta.RoomID)
		}
	}
	return meta, true
}

// Broadcast delivers one message to every connection bound to a room.
// Sockets that fail the write are closed; their reader loops then run the
// normal disconnect path.
func (h *Hub) Broadcast(roomID string, msg any) {
	h.mu.RLock()
	conns := make([]*clientConn, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.writeJSON(msg); err != nil {
			c.close()
		}
	}
}
