package domain

import (
	"context"
	"sync"

	"chat-hub/domain/event"
)

// NewsQueue is the per-user pending event queue: unbounded FIFO,
// enqueue-safe from any goroutine, drained by the single owning
// consumer. Push never blocks; the wake channel is a one-slot signal
// that at least one item may be available.
type NewsQueue struct {
	mu    sync.Mutex
	items []event.WhatsUp
	wake  chan struct{}
}

func NewNewsQueue() *NewsQueue {
	return &NewsQueue{wake: make(chan struct{}, 1)}
}

func (q *NewsQueue) Push(e event.WhatsUp) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// TryPop removes and returns the oldest item without blocking.
func (q *NewsQueue) TryPop() (event.WhatsUp, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return event.WhatsUp{}, false
	}
	e := q.items[0]
	q.items = q.items[1:]
	return e, true
}

// PopWait blocks until an item arrives or ctx expires. A canceled or
// timed-out wait returns ok=false; callers treat that as "no event",
// never as an error. Wake signals can be stale after a TryPop drained
// the item, hence the re-check loop.
func (q *NewsQueue) PopWait(ctx context.Context) (event.WhatsUp, bool) {
	for {
		if e, ok := q.TryPop(); ok {
			return e, true
		}
		select {
		case <-ctx.Done():
			return event.WhatsUp{}, false
		case <-q.wake:
		}
	}
}

func (q *NewsQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
