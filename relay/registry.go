package relay

import (
	"sync"

	"dm-relay/contract"
)

// Registry is the single source of truth for presence: which identities
// currently have an open outbound channel.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.MessageSink // map identity -> sink
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]contract.MessageSink),
	}
}

// Register unconditionally binds username to sink, replacing any prior
// binding. A reconnect under the same identity is not an error: the last
// connection wins and there is no multi-device fan-out.
func (r *Registry) Register(username string, sink contract.MessageSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[username] = sink
}

// Unregister removes the binding for username, but only if it still maps
// to the given sink. The guard keeps a dying connection from tearing down
// the binding of the newer connection that already replaced it.
func (r *Registry) Unregister(username string, sink contract.MessageSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[username]; ok && current == sink {
		delete(r.sessions, username)
	}
}

// Lookup returns the sink bound to username, used to decide deliver-now
// versus queue-for-later.
func (r *Registry) Lookup(username string) (contract.MessageSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[username]
	return sink, ok
}

// Online returns the number of currently registered identities.
func (r *Registry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
