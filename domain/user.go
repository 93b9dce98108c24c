package domain

import (
	"sync"
	"sync/atomic"
	"time"
)

// User is one live session. A username has at most one live session at a
// time, enforced by the registry. The channel set is only mutated under
// the striped entity locks; the last-seen timestamp is atomic because the
// idle sweep reads it without holding any lock. The ignore set carries
// its own lock: message fanout reads every member's set while holding
// only the channel and sender stripes, so an ignore write naming a third
// user runs under a disjoint stripe set.
type User struct {
	Session  string
	Username string
	News     *NewsQueue

	lastSeen  atomic.Int64 // unix nanos
	channels  map[string]*Channel
	ignoredMu sync.RWMutex
	ignored   map[string]struct{}
}

func NewUser(session, username string) *User {
	u := &User{
		Session:  session,
		Username: username,
		News:     NewNewsQueue(),
		channels: make(map[string]*Channel),
		ignored:  make(map[string]struct{}),
	}
	u.Touch()
	return u
}

// Touch records activity; every successfully resolved operation calls it,
// so any authenticated call acts as a keep-alive.
func (u *User) Touch() {
	u.lastSeen.Store(time.Now().UnixNano())
}

func (u *User) LastSeen() time.Time {
	return time.Unix(0, u.lastSeen.Load())
}

// JoinChannel records membership on the user side. Reports whether the
// set actually changed.
func (u *User) JoinChannel(c *Channel) bool {
	if _, ok := u.channels[c.Name]; ok {
		return false
	}
	u.channels[c.Name] = c
	return true
}

func (u *User) LeaveChannel(name string) bool {
	if _, ok := u.channels[name]; !ok {
		return false
	}
	delete(u.channels, name)
	return true
}

// Channels snapshots the joined set; safe to iterate while the
// underlying map is being mutated by part calls.
func (u *User) Channels() []*Channel {
	out := make([]*Channel, 0, len(u.channels))
	for _, c := range u.channels {
		out = append(out, c)
	}
	return out
}

// SetIgnored adds or removes a username from the ignore set and reports
// whether the set actually changed.
func (u *User) SetIgnored(username string, state bool) bool {
	u.ignoredMu.Lock()
	defer u.ignoredMu.Unlock()

	_, present := u.ignored[username]
	if state == present {
		return false
	}
	if state {
		u.ignored[username] = struct{}{}
	} else {
		delete(u.ignored, username)
	}
	return true
}

func (u *User) Ignores(username string) bool {
	u.ignoredMu.RLock()
	defer u.ignoredMu.RUnlock()
	_, ok := u.ignored[username]
	return ok
}
