package capture

import (
	"sync"
	"sync/atomic"
)

// Bus is the fan-out channel every protocol server's PacketEvents are
// published onto; the capturer, the bridge engine, and the HTTP/WS
// collaborator each subscribe independently, as an explicit, typed
// publish/subscribe channel owned by the application rather than a
// per-server callback.
//
// Subscriber channels are buffered. Publish holds the read lock while it
// fans out and Unsubscribe takes the write lock, so an Unsubscribe never
// races with a Publish in progress. A slow subscriber that cannot keep
// up with its buffer drops the newest event for itself only — Publish
// never blocks the producing protocol server.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan PacketEvent
	next int
	seq  atomic.Uint64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan PacketEvent)}
}

// Subscribe registers a new listener with the given buffer depth and
// returns the channel plus an unsubscribe function.
func (b *Bus) Subscribe(buffer int) (<-chan PacketEvent, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan PacketEvent, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
	}
}

// Publish stamps the event with the next monotonic sequence number (if
// unset) and fans it out to every current subscriber.
func (b *Bus) Publish(evt PacketEvent) PacketEvent {
	if evt.Seq == 0 {
		evt.Seq = b.seq.Add(1)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	return evt
}
