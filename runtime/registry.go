package runtime

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"chatline/contract"
)

// Registry is the live connection directory: one entry per connected user.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]contract.ConnectionHandle // map user -> active connection
}

var _ contract.IRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]contract.ConnectionHandle),
	}
}

// Register stores a user's active connection.
// A user has at most one live connection: when a second device connects,
// the previous handle is closed and replaced (last write wins).
func (r *Registry) Register(userID string, handle contract.ConnectionHandle) {
	r.mu.Lock()
	previous, existed := r.connections[userID]
	r.connections[userID] = handle
	r.mu.Unlock()

	// Close outside the lock, Close may block on the peer
	if existed && previous != handle {
		previous.Close()
	}
}

// Unregister removes a user's connection, but only if handle is still the
// current one. A superseded connection tearing itself down must not evict
// the connection that replaced it.
func (r *Registry) Unregister(userID string, handle contract.ConnectionHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.connections[userID]; ok && current == handle {
		delete(r.connections, userID)
	}
}

// Lookup resolves a user ID into their active connection, if any.
func (r *Registry) Lookup(userID string) (contract.ConnectionHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handle, ok := r.connections[userID]
	return handle, ok
}

// Online returns the IDs of every connected user, sorted for stable output.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := lo.Keys(r.connections)
	sort.Strings(users)
	return users
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.connections)
}
