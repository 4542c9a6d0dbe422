package bacnet

import (
	"context"
	"math/rand"
	"time"

	"github.com/ioprotolab/simhub/internal/simsignal"
)

// RunDataSimulator walks device's analog objects and flips its
// binary-input switches once per interval until ctx is canceled.
func RunDataSimulator(ctx context.Context, device *Device, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, obj := range device.WalkAnalogObjects() {
				v, ok := obj.PresentValue.(float64)
				if !ok {
					continue
				}
				sigma := simsignal.SigmaFor(obj.Name, (obj.Max-obj.Min)*0.02)
				device.SetPresentValue(obj.Instance, simsignal.WalkAnalog(rng, v, sigma, obj.Min, obj.Max))
			}
			for _, obj := range device.binaryInputObjects() {
				v, ok := obj.PresentValue.(uint32)
				if !ok {
					continue
				}
				flipped := simsignal.FlipBool(rng, v != 0, 0.1)
				if flipped {
					device.SetPresentValue(obj.Instance, uint32(1))
				} else {
					device.SetPresentValue(obj.Instance, uint32(0))
				}
			}
		}
	}
}
