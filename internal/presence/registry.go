// Package presence tracks which subjects (students, mentors) currently hold
// a live connection. All state is in-memory and rebuilt from scratch on
// restart via client-initiated registration.
package presence

import "sync"

// Conn is the live connection handle stored in a registry. Implementations
// must have a stable identity for the lifetime of the socket; removal is
// matched by that identity, never by subject id alone.
type Conn interface {
	// ID returns the unique identity of this handle.
	ID() string
	// SendJSON queues an event for delivery. Best effort: an error means
	// the event was dropped, not that the subject lost it (storage is
	// authoritative).
	SendJSON(v interface{}) error
	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Event is the server-to-client message envelope pushed over a live
// connection.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Registry is a mutex-protected subjectID -> connection map. One instance
// exists per namespace (students, mentors). Registration is
// last-wins: a new connection for an already-registered subject replaces
// the old entry, and the superseded handle is closed asynchronously so the
// replacement never blocks on socket teardown.
//
// No method performs I/O while holding the lock.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Conn)}
}

// Register makes conn the live handle for subjectID, unconditionally
// replacing any previous entry. The replaced handle, if any, is returned
// after being scheduled for close.
func (r *Registry) Register(subjectID string, conn Conn) Conn {
	r.mu.Lock()
	old := r.entries[subjectID]
	r.entries[subjectID] = conn
	r.mu.Unlock()

	if old != nil && old.ID() != conn.ID() {
		go old.Close()
	}
	return old
}

// Lookup returns the live handle for subjectID. Absence is a normal
// outcome, not a failure.
func (r *Registry) Lookup(subjectID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.entries[subjectID]
	return c, ok
}

// Remove deletes the entry for subjectID only if the stored handle is the
// given one. A disconnect of an already-superseded handle is a no-op and
// must not evict the newer entry. Reports whether an entry was removed.
func (r *Registry) Remove(subjectID string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.entries[subjectID]
	if !ok || cur.ID() != conn.ID() {
		return false
	}
	delete(r.entries, subjectID)
	return true
}

// OnlineIDs returns a point-in-time snapshot of registered subject ids.
func (r *Registry) OnlineIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// Connections returns a point-in-time snapshot of all live handles, for
// namespace-wide fan-out.
func (r *Registry) Connections() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Conn, 0, len(r.entries))
	for _, c := range r.entries {
		conns = append(conns, c)
	}
	return conns
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
