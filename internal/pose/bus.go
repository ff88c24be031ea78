package pose

import (
	"sync"

	"github.com/google/uuid"
)

// SnapshotBus fans the latest DebugSnapshot out to subscribers. Each
// subscriber channel holds at most one snapshot: a slow reader observes the
// newest state, never a backlog.
type SnapshotBus struct {
	mu          sync.Mutex
	subscribers map[string]chan DebugSnapshot
	closed      bool
}

// NewSnapshotBus creates an empty bus.
func NewSnapshotBus() *SnapshotBus {
	return &SnapshotBus{subscribers: make(map[string]chan DebugSnapshot)}
}

// Subscribe registers a new single-slot channel for snapshot delivery. The
// returned ID identifies the channel when unsubscribing.
func (b *SnapshotBus) Subscribe() (string, <-chan DebugSnapshot) {
	id := uuid.NewString()
	ch := make(chan DebugSnapshot, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *SnapshotBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Publish replaces each subscriber's pending snapshot with s. Never blocks.
func (b *SnapshotBus) Publish(s DebugSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- s:
		default:
			// Slot occupied: drop the stale snapshot and retry once.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// Close closes all subscriber channels and rejects future subscriptions.
func (b *SnapshotBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
