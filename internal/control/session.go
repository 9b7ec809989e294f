// ABOUTME: Control session bookkeeping
// ABOUTME: Tracks connected operators across stdin, TCP and WebSocket transports
package control

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session identifies one control-plane conversation.
type Session struct {
	ID        string
	Transport string // "stdin", "tcp", "websocket", "tui"
	Remote    string
	Connected time.Time
}

// NewSession creates a session with a fresh ID.
func NewSession(transport, remote string) *Session {
	return &Session{
		ID:        uuid.New().String(),
		Transport: transport,
		Remote:    remote,
		Connected: time.Now(),
	}
}

// String returns a label suitable for logs.
func (s *Session) String() string {
	if s.Remote == "" {
		return s.Transport
	}
	return s.Transport + " " + s.Remote
}

// Registry tracks active sessions for display.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
}

func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	delete(r.sessions, s.ID)
	r.mu.Unlock()
}

// Sessions returns active sessions ordered by connect time.
func (r *Registry) Sessions() []Session {
	r.mu.RLock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Connected.Before(out[j].Connected)
	})
	return out
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
