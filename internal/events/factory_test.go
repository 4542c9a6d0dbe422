package events

import (
	"testing"

	"github.com/ioprotolab/simhub/internal/config"
)

func TestNewDefaultsToMemory(t *testing.T) {
	bus, err := New(config.EventsConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := bus.(*MemoryBus); !ok {
		t.Fatalf("expected *MemoryBus, got %T", bus)
	}
}

func TestNewRedisRequiresAddr(t *testing.T) {
	if _, err := New(config.EventsConfig{Backend: "redis"}); err == nil {
		t.Fatal("expected error for missing redis_addr")
	}
}

func TestNewZMQListensOnAddr(t *testing.T) {
	bus, err := New(config.EventsConfig{Backend: "zmq", ZMQAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer bus.Close()
	if _, ok := bus.(*ZMQBus); !ok {
		t.Fatalf("expected *ZMQBus, got %T", bus)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	if _, err := New(config.EventsConfig{Backend: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
