package modbus

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/ioprotolab/simhub/internal/simsignal"
)

// SimulatedRegister is one input register the data simulator evolves each
// tick, addressed by its 16-bit register address and a name used only to
// select a sigma profile.
type SimulatedRegister struct {
	Addr uint16
	Name string
	Min  float64
	Max  float64
	// Scale converts the floating simulated value to the register's raw
	// uint16 units (e.g. a 0-100.0 degree range scaled by 10 to fit one
	// register at 0.1 degree resolution).
	Scale float64

	value float64
}

// RunDataSimulator walks every register in regs once per interval until
// ctx is canceled, writing results into unit's input-register bank.
func RunDataSimulator(ctx context.Context, unit *Device, regs []*SimulatedRegister, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for _, r := range regs {
		if r.value == 0 {
			r.value = (r.Min + r.Max) / 2
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, r := range regs {
				sigma := simsignal.SigmaFor(r.Name, (r.Max-r.Min)*0.02)
				r.value = simsignal.WalkAnalog(rng, r.value, sigma, r.Min, r.Max)
				scale := r.Scale
				if scale == 0 {
					scale = 1
				}
				unit.SetInputRegister(r.Addr, uint16(math.Round(r.value*scale)))
			}
		}
	}
}
