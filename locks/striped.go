// Package locks provides the entity lock coordinator: a fixed pool of
// reentrant mutexes that logical keys (users, channels) hash onto, and a
// composite bundle that always acquires them in one global order.
//
// Two different keys may alias to the same mutex under load. That only
// adds conservative serialization, never incorrectness. The fixed
// acquisition order across all call sites is the sole deadlock-avoidance
// mechanism; no caller may choose its own order.
package locks

import (
	"bytes"
	"hash/fnv"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

const DefaultStripes = 32

// ReentrantMutex is a mutex that the owning goroutine may lock again
// without deadlocking against itself. Required here because logout
// re-enters part while already holding the caller's lock.
type ReentrantMutex struct {
	mu    sync.Mutex
	owner atomic.Int64 // goroutine id, 0 = unowned
	depth int
}

func (m *ReentrantMutex) Lock() {
	id := goroutineID()
	if m.owner.Load() == id {
		m.depth++
		return
	}
	m.mu.Lock()
	m.owner.Store(id)
	m.depth = 1
}

func (m *ReentrantMutex) Unlock() {
	if m.owner.Load() != goroutineID() {
		panic("locks: unlock by non-owner goroutine")
	}
	m.depth--
	if m.depth == 0 {
		m.owner.Store(0)
		m.mu.Unlock()
	}
}

// goroutineID parses the current goroutine id out of the stack header
// ("goroutine 42 [running]:"). Goroutine ids start at 1, so 0 is a safe
// unowned sentinel.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		panic("locks: unparsable stack header")
	}
	id, err := strconv.ParseInt(string(fields[1]), 10, 64)
	if err != nil {
		panic("locks: unparsable goroutine id: " + err.Error())
	}
	return id
}

// Striped maps logical keys onto a fixed pool of reentrant mutexes.
type Striped struct {
	pool []ReentrantMutex
}

func NewStriped(stripes int) *Striped {
	if stripes <= 0 {
		stripes = DefaultStripes
	}
	return &Striped{pool: make([]ReentrantMutex, stripes)}
}

func (s *Striped) forKey(key string) *ReentrantMutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.pool[h.Sum32()%uint32(len(s.pool))]
}

// ChannelKey and UserKey build the stable lock identifiers. Channels and
// users live in distinct key namespaces even when names collide.
func ChannelKey(name string) string { return "C$" + name }

func UserKey(username string) string { return "U$" + username }

// Bundle holds the locks of one operation. Slots may be nil when the
// operation does not touch the corresponding entity.
type Bundle struct {
	channel  *ReentrantMutex
	affected *ReentrantMutex
	caller   *ReentrantMutex
}

// Acquire locks up to three entity keys, always in the order
// channel, affected user, caller, skipping empty keys. The returned
// bundle must be released exactly once.
func (s *Striped) Acquire(channelKey, affectedKey, callerKey string) *Bundle {
	b := &Bundle{}
	if channelKey != "" {
		b.channel = s.forKey(channelKey)
	}
	if affectedKey != "" {
		b.affected = s.forKey(affectedKey)
	}
	if callerKey != "" {
		b.caller = s.forKey(callerKey)
	}

	if b.channel != nil {
		b.channel.Lock()
	}
	if b.affected != nil {
		b.affected.Lock()
	}
	if b.caller != nil {
		b.caller.Lock()
	}
	return b
}

// Release unlocks in acquisition order, not reversed. Safe because the
// slots are independent reentrant locks, not a stack-discipline resource.
func (b *Bundle) Release() {
	if b.channel != nil {
		b.channel.Unlock()
	}
	if b.affected != nil {
		b.affected.Unlock()
	}
	if b.caller != nil {
		b.caller.Unlock()
	}
}
