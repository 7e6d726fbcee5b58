package rooms

import "sync"

// Manager tracks per-room membership sets keyed by connection id.
// Room ids are opaque external keys; no existence check happens here.
type Manager struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]struct{} // roomID -> set of connIDs
	joined map[string]map[string]struct{} // connID -> set of roomIDs
}

// New creates an empty room membership manager.
func New() *Manager {
	return &Manager{
		rooms:  make(map[string]map[string]struct{}),
		joined: make(map[string]map[string]struct{}),
	}
}

// Join adds a connection to a room. It reports whether the connection
// was newly added; joining twice is a no-op.
func (m *Manager) Join(connID, roomID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.rooms[roomID]
	if set == nil {
		set = make(map[string]struct{})
		m.rooms[roomID] = set
	}
	if _, ok := set[connID]; ok {
		return false
	}
	set[connID] = struct{}{}

	if m.joined[connID] == nil {
		m.joined[connID] = make(map[string]struct{})
	}
	m.joined[connID][roomID] = struct{}{}
	return true
}

// Leave removes a connection from a room. It reports whether the
// connection was a member; leaving twice is a no-op.
func (m *Manager) Leave(connID, roomID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaveLocked(connID, roomID)
}

func (m *Manager) leaveLocked(connID, roomID string) bool {
	set, ok := m.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := set[connID]; !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(m.rooms, roomID)
	}

	joined := m.joined[connID]
	delete(joined, roomID)
	if len(joined) == 0 {
		delete(m.joined, connID)
	}
	return true
}

// LeaveAll removes a connection from every room it belongs to and
// returns the rooms that were left. Called on disconnect so that no
// membership outlives its connection.
func (m *Manager) LeaveAll(connID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	joined := m.joined[connID]
	left := make([]string, 0, len(joined))
	for roomID := range joined {
		left = append(left, roomID)
	}
	for _, roomID := range left {
		m.leaveLocked(connID, roomID)
	}
	return left
}

// Members returns a snapshot of the connection ids subscribed to a room.
func (m *Manager) Members(roomID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.rooms[roomID]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// Rooms returns a snapshot of the rooms a connection has joined.
func (m *Manager) Rooms(connID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	joined := m.joined[connID]
	ids := make([]string, 0, len(joined))
	for id := range joined {
		ids = append(ids, id)
	}
	return ids
}

// Counts returns room ids with their current member counts.
func (m *Manager) Counts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[string]int, len(m.rooms))
	for roomID, set := range m.rooms {
		counts[roomID] = len(set)
	}
	return counts
}
