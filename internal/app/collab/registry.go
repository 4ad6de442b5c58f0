package collab

import (
	"sync"

	"collabhub/internal/app/user"
)

// Registry tracks every live connection and, for bound connections, the fan-out
// set of connections held by each identity. It performs no credential checks:
// identities handed to Bind are trusted.
type Registry struct {
	mu sync.Mutex

	// conns holds every attached connection, bound or not, keyed by connection id.
	conns map[string]*Client

	// byUser maps identity id to the connections currently bound to it.
	byUser map[string]map[string]*Client

	// boundTo maps connection id to the identity id it is bound to.
	boundTo map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[string]*Client),
		byUser:  make(map[string]map[string]*Client),
		boundTo: make(map[string]string),
	}
}

// Add records a freshly accepted connection.
func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID] = c
}

// Remove forgets the connection entirely, unbinding it first.
func (r *Registry) Remove(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unbindLocked(c.ID)
	delete(r.conns, c.ID)
}

// Bind records c under u's fan-out set. Rebinding to a different identity
// removes c from the previous identity's set first.
func (r *Registry) Bind(c *Client, u user.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.boundTo[c.ID]; ok && prev != u.ID {
		r.unbindLocked(c.ID)
	}

	set, ok := r.byUser[u.ID]
	if !ok {
		set = make(map[string]*Client)
		r.byUser[u.ID] = set
	}
	set[c.ID] = c
	r.boundTo[c.ID] = u.ID
}

func (r *Registry) unbindLocked(connID string) {
	userID, ok := r.boundTo[connID]
	if !ok {
		return
	}
	delete(r.boundTo, connID)

	if set, ok := r.byUser[userID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.byUser, userID)
		}
	}
}

// ConnectionsOf returns the live connections bound to userID.
func (r *Registry) ConnectionsOf(userID string) []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.byUser[userID]
	out := make([]*Client, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// All returns every attached connection.
func (r *Registry) All() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Client, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// ConnectionCount returns the number of attached connections.
func (r *Registry) ConnectionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// IdentityCount returns the number of identities holding at least one connection.
func (r *Registry) IdentityCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}
