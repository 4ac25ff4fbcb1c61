package service

import (
	"sync"
	"time"
)

// Registry tracks when each execution peer was last heard from. It is
// process-memory only: after a restart peers must HELLO again before any
// fire is admitted to them. Mutation happens only from the hub read loops;
// everyone else gets the read API.
type Registry struct {
	mu   sync.RWMutex
	seen map[string]time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		seen: make(map[string]time.Time),
	}
}

func (r *Registry) Touch(peerID string, now time.Time) {
	if peerID == "" {
		return
	}
	r.mu.Lock()
	r.seen[peerID] = now
	r.mu.Unlock()
}

// IsFresh reports whether the peer was heard from within ttl. No record
// means not fresh.
func (r *Registry) IsFresh(peerID string, now time.Time, ttl time.Duration) bool {
	r.mu.RLock()
	last, ok := r.seen[peerID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return now.Sub(last) <= ttl
}

func (r *Registry) LastSeen(peerID string) (time.Time, bool) {
	r.mu.RLock()
	last, ok := r.seen[peerID]
	r.mu.RUnlock()
	return last, ok
}
