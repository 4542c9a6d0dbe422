package mqttproto

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ioprotolab/simhub/internal/simsignal"
)

// SimulatedTopic is one telemetry topic the data simulator evolves and
// republishes each tick.
type SimulatedTopic struct {
	Topic string
	Name  string // quantity name, for sigma-profile lookup
	Min   float64
	Max   float64
	Qos   byte

	value float64
}

// RunDataSimulator walks every topic in topics once per interval,
// publishing a retained JSON payload through broker.
func RunDataSimulator(ctx context.Context, broker *Broker, topics []*SimulatedTopic, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for _, t := range topics {
		if t.value == 0 {
			t.value = (t.Min + t.Max) / 2
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, t := range topics {
				sigma := simsignal.SigmaFor(t.Name, (t.Max-t.Min)*0.02)
				t.value = simsignal.WalkAnalog(rng, t.value, sigma, t.Min, t.Max)
				payload := []byte(fmt.Sprintf(`{"value":%.2f}`, t.value))
				broker.Publish(Publish{Topic: t.Topic, Qos: t.Qos, Retain: true, Payload: payload})
			}
		}
	}
}
