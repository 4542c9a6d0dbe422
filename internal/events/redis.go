package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
)

// RedisBus publishes events to a Redis pub/sub channel per event type
// (iot:<event_type>) and retains every one in a capped list
// (events:<event_type>) via LPUSH/LTRIM, so a second process can recover
// recent history after connecting. Local Subscribe calls fan out from a
// single background reader goroutine per subscribed channel, matching
// the in-memory bus's priority/insertion ordering.
type RedisBus struct {
	client      *redis.Client
	historySize int

	mu     sync.Mutex
	subs   []subscription
	nextID int
	order  int
	cancel map[string]context.CancelFunc
}

// NewRedisBus dials addr and returns a Bus backed by it. The connection
// is not tested here; the first Publish/Subscribe call surfaces dial
// errors.
func NewRedisBus(addr string, historySize int) *RedisBus {
	if historySize <= 0 {
		historySize = 1000
	}
	return &RedisBus{
		client:      redis.NewClient(&redis.Options{Addr: addr}),
		historySize: historySize,
		cancel:      make(map[string]context.CancelFunc),
	}
}

func channelName(eventType string) string { return "iot:" + eventType }
func listName(eventType string) string    { return "events:" + eventType }

func (b *RedisBus) Publish(evt Event) error {
	ctx := context.Background()
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}

	if err := b.client.Publish(ctx, channelName(evt.Type), data).Err(); err != nil {
		return fmt.Errorf("events: redis publish: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.LPush(ctx, listName(evt.Type), data)
	pipe.LTrim(ctx, listName(evt.Type), 0, int64(b.historySize-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("events: redis history: %w", err)
	}
	return nil
}

// Subscribe starts (or reuses) a background PSubscribe reader for the
// given event type ("*" maps to Redis's iot:* pattern) and registers
// handler against it with priority/insertion ordering applied locally,
// same as MemoryBus.
func (b *RedisBus) Subscribe(eventType string, priority Priority, handler Handler) (func(), error) {
	pattern := channelName(eventType)
	if eventType == "*" {
		pattern = "iot:*"
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	order := b.order
	b.order++
	b.subs = append(b.subs, subscription{id: id, eventType: eventType, priority: priority, order: order, handler: handler})
	_, running := b.cancel[pattern]
	var ctx context.Context
	var cancel context.CancelFunc
	if !running {
		ctx, cancel = context.WithCancel(context.Background())
		b.cancel[pattern] = cancel
	}
	b.mu.Unlock()

	if !running {
		sub := b.client.PSubscribe(ctx, pattern)
		go b.readLoop(ctx, sub, eventType)
	}

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

func (b *RedisBus) readLoop(ctx context.Context, sub *redis.PubSub, eventType string) {
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				continue
			}
			b.dispatch(evt)
		}
	}
}

func (b *RedisBus) dispatch(evt Event) {
	b.mu.Lock()
	matching := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.eventType == "*" || s.eventType == evt.Type {
			matching = append(matching, s)
		}
	}
	b.mu.Unlock()

	for i := 0; i < len(matching); i++ {
		for j := i + 1; j < len(matching); j++ {
			if matching[j].priority > matching[i].priority ||
				(matching[j].priority == matching[i].priority && matching[j].order < matching[i].order) {
				matching[i], matching[j] = matching[j], matching[i]
			}
		}
	}
	for _, s := range matching {
		s.handler(evt)
	}
}

// History reads the capped list events:<eventType>, oldest first. An
// eventType of "*" is not expanded across types: it reads the literal list
// "events:*", which Publish never writes, so it returns no events.
func (b *RedisBus) History(eventType string, limit int) []Event {
	ctx := context.Background()
	if limit <= 0 {
		limit = b.historySize
	}
	raw, err := b.client.LRange(ctx, listName(eventType), 0, int64(limit-1)).Result()
	if err != nil {
		return nil
	}
	out := make([]Event, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var evt Event
		if json.Unmarshal([]byte(raw[i]), &evt) == nil {
			out = append(out, evt)
		}
	}
	return out
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	for _, cancel := range b.cancel {
		cancel()
	}
	b.mu.Unlock()
	return b.client.Close()
}
