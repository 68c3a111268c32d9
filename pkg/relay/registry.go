package relay

import (
	"sync"
	"time"
)

// Registry maps each user ID to at most one live connection. It is the only
// shared mutable state between connection goroutines; the mutex guards map
// mutation and lookup only — no network I/O happens under the lock.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*Client
	grace time.Duration
}

func NewRegistry(grace time.Duration) *Registry {
	return &Registry{
		conns: make(map[string]*Client),
		grace: grace,
	}
}

// Register installs c as the current connection for its user. A previous
// connection for the same user is superseded: it is returned to the caller
// and force-closed after the grace window unless it closed itself first.
// The delay tolerates rapid reconnects where the old socket's close races
// the new registration.
func (r *Registry) Register(c *Client) (superseded *Client) {
	r.mu.Lock()
	prev := r.conns[c.UserID()]
	r.conns[c.UserID()] = c
	r.mu.Unlock()

	if prev != nil && prev != c {
		time.AfterFunc(r.grace, prev.shutdown)
		return prev
	}
	return nil
}

// Unregister removes the entry for c's user only if it still points at c,
// so a stale close from a superseded socket never deletes the newer
// registration. It reports whether the entry was removed.
func (r *Registry) Unregister(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[c.UserID()] == c {
		delete(r.conns, c.UserID())
		return true
	}
	return false
}

// Lookup returns the current connection for userID, if any. O(1), never
// blocks on I/O.
func (r *Registry) Lookup(userID string) (*Client, bool) {
	r.mu.Lock()
	c, ok := r.conns[userID]
	r.mu.Unlock()
	return c, ok
}

// Snapshot returns the current connections. The slice is safe to iterate
// without holding the registry lock.
func (r *Registry) Snapshot() []*Client {
	r.mu.Lock()
	out := make([]*Client, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	r.mu.Unlock()
	return out
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	n := len(r.conns)
	r.mu.Unlock()
	return n
}
