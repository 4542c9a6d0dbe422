package coap

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ioprotolab/simhub/internal/simsignal"
)

// SimulatedResource is one registered resource the data simulator evolves
// each tick.
type SimulatedResource struct {
	Path string
	Name string
	Min  float64
	Max  float64

	value float64
}

// RunDataSimulator walks every resource in resources once per interval,
// updating the store and pushing Observe notifications to any current
// watchers.
func RunDataSimulator(ctx context.Context, server *Server, resources []*SimulatedResource, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for _, r := range resources {
		if r.value == 0 {
			r.value = (r.Min + r.Max) / 2
		}
		server.Store.Put(r.Path, ContentFormatJSON, []byte(fmt.Sprintf(`{"value":%.2f}`, r.value)))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, r := range resources {
				sigma := simsignal.SigmaFor(r.Name, (r.Max-r.Min)*0.02)
				r.value = simsignal.WalkAnalog(rng, r.value, sigma, r.Min, r.Max)
				server.Store.Put(r.Path, ContentFormatJSON, []byte(fmt.Sprintf(`{"value":%.2f}`, r.value)))
				server.notifyObservers(r.Path)
			}
		}
	}
}
