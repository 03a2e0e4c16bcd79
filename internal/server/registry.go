package server

import (
	"sort"
	"strings"
	"sync"
)

// Registry maps lower-cased usernames to their live session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

func key(username string) string {
	return strings.ToLower(username)
}

// Register adds the session under its username unless the name, compared
// case-insensitively, is already taken.
func (r *Registry) Register(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(s.Username())
	if _, ok := r.sessions[k]; ok {
		return ErrUsernameTaken
	}
	r.sessions[k] = s
	return nil
}

// Deregister removes the session. It is a no-op if the name is held by a
// different session.
func (r *Registry) Deregister(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(s.Username())
	if r.sessions[k] != s {
		return false
	}
	delete(r.sessions, k)
	return true
}

func (r *Registry) Lookup(username string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[key(username)]
	return s, ok
}

// Sessions returns the registered sessions ordered by username.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()
	sort.Slice(sessions, func(i, j int) bool {
		return key(sessions[i].Username()) < key(sessions[j].Username())
	})
	return sessions
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
