package events

import (
	"sort"
	"sync"
)

type subscription struct {
	id        int
	eventType string
	priority  Priority
	order     int
	handler   Handler
}

// MemoryBus is the default in-process backend: a bounded ring of recent
// events per type plus a priority-then-insertion-ordered subscriber list.
type MemoryBus struct {
	mu          sync.Mutex
	subs        []subscription
	nextSubID   int
	nextOrder   int
	historySize int
	history     map[string][]Event
}

// NewMemoryBus builds an in-memory Bus retaining up to historySize events
// per type. historySize <= 0 falls back to 1000.
func NewMemoryBus(historySize int) *MemoryBus {
	if historySize <= 0 {
		historySize = 1000
	}
	return &MemoryBus{
		historySize: historySize,
		history:     make(map[string][]Event),
	}
}

func (b *MemoryBus) Publish(evt Event) error {
	b.mu.Lock()
	hist := append(b.history[evt.Type], evt)
	if len(hist) > b.historySize {
		hist = hist[len(hist)-b.historySize:]
	}
	b.history[evt.Type] = hist

	matching := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.eventType == "*" || s.eventType == evt.Type {
			matching = append(matching, s)
		}
	}
	b.mu.Unlock()

	sort.SliceStable(matching, func(i, j int) bool {
		if matching[i].priority != matching[j].priority {
			return matching[i].priority > matching[j].priority
		}
		return matching[i].order < matching[j].order
	})

	for _, s := range matching {
		s.handler(evt)
	}
	return nil
}

func (b *MemoryBus) Subscribe(eventType string, priority Priority, handler Handler) (func(), error) {
	b.mu.Lock()
	id := b.nextSubID
	b.nextSubID++
	order := b.nextOrder
	b.nextOrder++
	b.subs = append(b.subs, subscription{id: id, eventType: eventType, priority: priority, order: order, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
	}, nil
}

func (b *MemoryBus) History(eventType string, limit int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Event
	if eventType == "*" {
		for _, evts := range b.history {
			out = append(out, evts...)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	} else {
		out = append(out, b.history[eventType]...)
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (b *MemoryBus) Close() error { return nil }
