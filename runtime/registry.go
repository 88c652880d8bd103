package runtime

import (
	"chat-relay/contract"
	"sort"
	"sync"
)

// Registry is the single source of truth for which users are reachable.
// It maps a username to the one live connection handle for that user.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]contract.ConnectionHandle
}

func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[string]contract.ConnectionHandle),
	}
}

// Connect installs handle as the live connection for user. A reconnect
// under the same name wins the slot unconditionally; the prior handle is
// returned so the caller can revoke it explicitly instead of leaving it
// orphaned.
func (r *Registry) Connect(user string, handle contract.ConnectionHandle) (contract.ConnectionHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prior, replaced := r.handles[user]
	r.handles[user] = handle
	return prior, replaced
}

// Disconnect removes user's entry if present and returns the handle that
// was registered. A second call for the same user finds nothing and
// reports ok=false, which keeps double disconnects harmless.
func (r *Registry) Disconnect(user string) (contract.ConnectionHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle, ok := r.handles[user]
	if ok {
		delete(r.handles, user)
	}
	return handle, ok
}

// Lookup is a pure read used on every routing decision.
func (r *Registry) Lookup(user string) (contract.ConnectionHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handle, ok := r.handles[user]
	return handle, ok
}

// ListOnline returns a point-in-time snapshot of registered usernames,
// leaving out excluding. The snapshot is sorted so the listing surface is
// stable between calls.
func (r *Registry) ListOnline(excluding string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []string
	for user := range r.handles {
		if user == excluding {
			continue
		}
		users = append(users, user)
	}
	sort.Strings(users)
	return users
}
