package notifier

import (
	"sync"
	"sync/atomic"

	"github.com/foreman-dev/foreman/pkg/types"
)

// Broadcaster delivers events to in-process subscribers over bounded
// channels. A subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[int]chan types.Event
	nextID  int
	closed  bool
	dropped atomic.Int64
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan types.Event)}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// cancel function unsubscribes and closes the channel.
func (b *Broadcaster) Subscribe(buffer int) (<-chan types.Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan types.Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Publish implements Publisher
func (b *Broadcaster) Publish(event types.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of live subscribers
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped on full buffers
func (b *Broadcaster) Dropped() int64 {
	return b.dropped.Load()
}

// Close unsubscribes everyone; later subscriptions receive a closed channel
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
