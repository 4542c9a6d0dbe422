package events

import (
	"sync"
	"testing"
	"time"
)

func TestMemoryBusDeliversByPriority(t *testing.T) {
	bus := NewMemoryBus(10)
	var mu sync.Mutex
	var order []string

	bus.Subscribe("device.offline", PriorityLow, func(evt Event) {
		mu.Lock()
		order = append(order, "low")
		mu.Unlock()
	})
	bus.Subscribe("device.offline", PriorityHigh, func(evt Event) {
		mu.Lock()
		order = append(order, "high")
		mu.Unlock()
	})

	bus.Publish(Event{Type: "device.offline", Timestamp: time.Now()})

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "high" || order[1] != "low" {
		t.Fatalf("expected high-priority handler first, got %v", order)
	}
}

func TestMemoryBusWildcardSubscribe(t *testing.T) {
	bus := NewMemoryBus(10)
	received := 0
	bus.Subscribe("*", PriorityNormal, func(evt Event) { received++ })

	bus.Publish(Event{Type: "rule.fired"})
	bus.Publish(Event{Type: "bridge.error"})

	if received != 2 {
		t.Fatalf("expected wildcard subscriber to see both events, got %d", received)
	}
}

func TestMemoryBusHistoryBounded(t *testing.T) {
	bus := NewMemoryBus(2)
	bus.Publish(Event{Type: "x", Data: map[string]interface{}{"n": 1}})
	bus.Publish(Event{Type: "x", Data: map[string]interface{}{"n": 2}})
	bus.Publish(Event{Type: "x", Data: map[string]interface{}{"n": 3}})

	hist := bus.History("x", 0)
	if len(hist) != 2 {
		t.Fatalf("expected history bounded to 2, got %d", len(hist))
	}
	if hist[0].Data["n"] != 2 || hist[1].Data["n"] != 3 {
		t.Fatalf("expected oldest entry evicted, got %+v", hist)
	}
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(10)
	received := 0
	unsub, _ := bus.Subscribe("x", PriorityNormal, func(evt Event) { received++ })
	bus.Publish(Event{Type: "x"})
	unsub()
	bus.Publish(Event{Type: "x"})

	if received != 1 {
		t.Fatalf("expected only 1 delivery before unsubscribe, got %d", received)
	}
}
