package runtime

import (
	"sync"

	"chat-hub/domain"
)

// Registry owns the token -> live session mapping. It is the only
// component allowed to create or destroy that association; tokens are
// never reused. A username index replaces the original scan-by-equality
// lookup so that "is this username logged in" is a keyed read.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*domain.User
	usernames map[string]string // username -> session token
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:  make(map[string]*domain.User),
		usernames: make(map[string]string),
	}
}

// Resolve returns the live user for a session token.
func (r *Registry) Resolve(session string) (*domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.sessions[session]
	return u, ok
}

// ResolveUsername returns the live user holding a username, if any.
func (r *Registry) ResolveUsername(username string) (*domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.usernames[username]
	if !ok {
		return nil, false
	}
	u, ok := r.sessions[session]
	return u, ok
}

// LoggedIn reports whether any live session holds the username.
func (r *Registry) LoggedIn(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.usernames[username]
	return ok
}

// Contains reports whether a token is already assigned. Used by login to
// detect generator collisions before handing a token out.
func (r *Registry) Contains(session string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[session]
	return ok
}

func (r *Registry) Put(u *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[u.Session] = u
	r.usernames[u.Username] = u.Session
}

func (r *Registry) Remove(session string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.sessions[session]
	if !ok {
		return
	}
	delete(r.sessions, session)
	delete(r.usernames, u.Username)
}

// Snapshot copies the live user set; the idle sweep iterates the copy so
// it can log sessions out without holding the registry lock.
func (r *Registry) Snapshot() []*domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.User, 0, len(r.sessions))
	for _, u := range r.sessions {
		out = append(out, u)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
