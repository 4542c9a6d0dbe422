package app

import (
	"fmt"
	"sync"

	"github.com/ioprotolab/simhub/internal/payload"
)

// Router resolves a protocol name to its protocolAdapter and satisfies
// bridge.Publisher / rules.Publisher (the same interface shape), so bridge
// mappings and rule publish_message/set_value actions share one dispatch
// table instead of each engine holding its own per-protocol switch.
type Router struct {
	mu       sync.RWMutex
	adapters map[string]protocolAdapter
}

func newRouter() *Router {
	return &Router{adapters: make(map[string]protocolAdapter)}
}

func (rt *Router) register(protocol string, a protocolAdapter) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.adapters[protocol] = a
}

// Publish implements bridge.Publisher and rules.Publisher.
func (rt *Router) Publish(protocol, topic string, body payload.Value) error {
	rt.mu.RLock()
	a, ok := rt.adapters[protocol]
	rt.mu.RUnlock()
	if !ok {
		return fmt.Errorf("app: no adapter registered for protocol %q", protocol)
	}
	return a.publish(topic, body)
}
