package realtime

import "sync"

// Conn is the one thing the session layer needs from a transport connection.
// *websocket.Conn satisfies it; tests use fakes.
type Conn interface {
	WriteJSON(v interface{}) error
}

type connMeta struct {
	userID string
	conn   Conn
}

// Registry tracks, per user, the set of live connections and, per room, the
// set of subscribed connections. It is created in app wiring and passed by
// reference so tests can run against an isolated instance. All state is
// rebuilt from nothing on restart; connections do not survive one either.
type Registry struct {
	mu sync.RWMutex
	// roomID -> connID -> conn
	rooms map[string]map[string]Conn
	// userID -> set of connIDs
	userConns map[string]map[string]bool
	// connID -> metadata
	conns map[string]connMeta
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:     make(map[string]map[string]Conn),
		userConns: make(map[string]map[string]bool),
		conns:     make(map[string]connMeta),
	}
}

// RegisterConnection records a live connection. Returns true if this is the
// user's first live connection (the user just came online).
func (r *Registry) RegisterConnection(userID, connID string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasOnline := len(r.userConns[userID]) > 0
	if r.userConns[userID] == nil {
		r.userConns[userID] = make(map[string]bool)
	}
	r.userConns[userID][connID] = true
	r.conns[connID] = connMeta{userID: userID, conn: conn}
	return !wasOnline
}

// DeregisterConnection removes the connection from both indexes and every
// room. Returns true if this was the user's last live connection.
func (r *Registry) DeregisterConnection(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, exists := r.conns[connID]
	if !exists {
		return false
	}
	delete(r.conns, connID)

	for roomID, conns := range r.rooms {
		if _, ok := conns[connID]; ok {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(r.rooms, roomID)
			}
		}
	}

	if set := r.userConns[meta.userID]; set != nil {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.userConns, meta.userID)
			return true
		}
	}
	return false
}

// Subscribe adds the connection to a room. Unknown connections are ignored.
func (r *Registry) Subscribe(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, ok := r.conns[connID]
	if !ok {
		return
	}
	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]Conn)
	}
	r.rooms[roomID][connID] = meta.conn
}

// Unsubscribe removes the connection from a room. Unsubscribing from a room
// the connection never joined is a no-op.
func (r *Registry) Unsubscribe(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conns, ok := r.rooms[roomID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.rooms, roomID)
		}
	}
}

// IsSubscribed reports whether the connection currently follows the room.
func (r *Registry) IsSubscribed(connID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID][connID]
	return ok
}

// ConnectionsInRoom returns the ids of every connection subscribed to roomID.
func (r *Registry) ConnectionsInRoom(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.rooms[roomID]))
	for connID := range r.rooms[roomID] {
		out = append(out, connID)
	}
	return out
}

func (r *Registry) IsUserOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.userConns[userID]) > 0
}

func (r *Registry) OnlineUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.userConns))
	for userID := range r.userConns {
		out = append(out, userID)
	}
	return out
}

// snapshotRoom returns conn refs for a room; used by the broadcaster so
// writes happen outside the registry lock.
func (r *Registry) snapshotRoom(roomID string) map[string]Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Conn, len(r.rooms[roomID]))
	for connID, conn := range r.rooms[roomID] {
		out[connID] = conn
	}
	return out
}

func (r *Registry) snapshotUser(userID string) map[string]Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Conn, len(r.userConns[userID]))
	for connID := range r.userConns[userID] {
		if meta, ok := r.conns[connID]; ok {
			out[connID] = meta.conn
		}
	}
	return out
}

func (r *Registry) snapshotAll() map[string]Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Conn, len(r.conns))
	for connID, meta := range r.conns {
		out[connID] = meta.conn
	}
	return out
}
