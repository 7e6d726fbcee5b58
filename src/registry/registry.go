package registry

import "sync"

// Registry is the authoritative map of live connections to users.
// It refcounts connections per user and reports online/offline
// transitions; all other presence state is derived from it.
type Registry struct {
	mu     sync.RWMutex
	owners map[string]string              // connID -> userID
	conns  map[string]map[string]struct{} // userID -> set of connIDs
}

// New creates an empty connection registry.
func New() *Registry {
	return &Registry{
		owners: make(map[string]string),
		conns:  make(map[string]map[string]struct{}),
	}
}

// Register records a connection under a user and reports whether the
// user transitioned from offline to online. Registering an already
// known connection id is a no-op.
func (r *Registry) Register(connID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.owners[connID]; ok {
		return false
	}
	r.owners[connID] = userID

	set := r.conns[userID]
	if set == nil {
		set = make(map[string]struct{})
		r.conns[userID] = set
	}
	set[connID] = struct{}{}
	return len(set) == 1
}

// Unregister removes a connection and reports the owning user and
// whether the user transitioned to offline. Unknown connection ids
// are a silent no-op.
func (r *Registry) Unregister(connID string) (userID string, becameOffline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owners[connID]
	if !ok {
		return "", false
	}
	delete(r.owners, connID)

	set := r.conns[userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.conns, userID)
		return userID, true
	}
	return userID, false
}

// UserOf returns the user owning a connection.
func (r *Registry) UserOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.owners[connID]
	return userID, ok
}

// IsOnline reports whether a user has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// OnlineUsers returns the ids of all currently online users.
// Entries are deleted at refcount zero, so this is proportional to
// the number of online users, not historical connections.
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

// ConnectionsOf returns the live connection ids for a user.
func (r *Registry) ConnectionsOf(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.conns[userID]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// ConnectionCount returns the number of live connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}
