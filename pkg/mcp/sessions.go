package mcp

import "sync"

// SessionRegistry maps editing session IDs to MCP client session IDs.
// Populated when a client opens an editing session.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]string // editing session ID → client session ID
}

// NewSessionRegistry creates a new empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]string)}
}

// Register associates an editing session with a client session.
// Reopening from another client overwrites the previous owner.
func (r *SessionRegistry) Register(editSessionID, clientSessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[editSessionID] = clientSessionID
}

// SessionFor returns the client session that owns the editing session.
func (r *SessionRegistry) SessionFor(editSessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.sessions[editSessionID]
	return sid, ok
}

// Forget drops one editing session.
func (r *SessionRegistry) Forget(editSessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, editSessionID)
}

// Remove deletes all editing session mappings for the given client session.
// Called when a client disconnects.
func (r *SessionRegistry) Remove(clientSessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for eid, sid := range r.sessions {
		if sid == clientSessionID {
			delete(r.sessions, eid)
		}
	}
}
