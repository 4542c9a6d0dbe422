// Package events implements simhub's application event bus: named
// typed events (device state changes, fault toggles, rule firings, bridge
// errors) delivered through a pluggable Bus interface, with in-memory,
// Redis, and ZMQ-contract implementations.
package events

import "time"

// Priority orders delivery among subscribers registered at the same time;
// higher fires first.
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 50
	PriorityHigh   Priority = 100
)

// Event is one published occurrence on the bus.
type Event struct {
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Handler receives delivered events. A Handler must not block for long:
// the in-memory backend calls handlers synchronously inside Publish, so a
// slow handler delays the publisher (see MemoryBus.Publish).
type Handler func(Event)

// Bus is implemented by every event backend.
type Bus interface {
	// Publish fans an event out to every matching subscriber.
	Publish(evt Event) error
	// Subscribe registers handler for eventType ("*" matches every type)
	// at the given priority and returns an unsubscribe function.
	Subscribe(eventType string, priority Priority, handler Handler) (func(), error)
	// History returns the most recent events of eventType (or every type
	// if eventType is "*"), oldest first, bounded by the backend's
	// configured history size.
	History(eventType string, limit int) []Event
	// Close releases the backend's resources.
	Close() error
}
