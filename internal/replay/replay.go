// Package replay plays back a recorded session, honoring the original
// inter-arrival timing (optionally scaled) and publishing each packet back
// onto a capture.Bus as it fires.
package replay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ioprotolab/simhub/internal/capture"
	"github.com/ioprotolab/simhub/internal/record"
)

// Mode selects how a Replayer paces packet delivery.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeFast   Mode = "fast"
	ModeSlow   Mode = "slow"
	ModeStep   Mode = "step"
	ModeLoop   Mode = "loop"
)

const (
	fastSpeedFactor = 4.0
	slowSpeedFactor = 0.25
)

// Replayer steps through one record.Session's packets, publishing them to
// a capture.Bus with their original timing reproduced (scaled per Mode).
type Replayer struct {
	bus     *capture.Bus
	packets []record.RecordedPacket
	mode    Mode

	mu      sync.Mutex
	index   int
	paused  bool
	stepCh  chan struct{}
	started bool
}

// NewReplayer builds a Replayer over a recorded packet sequence.
func NewReplayer(bus *capture.Bus, packets []record.RecordedPacket, mode Mode) *Replayer {
	if mode == "" {
		mode = ModeNormal
	}
	return &Replayer{
		bus:     bus,
		packets: packets,
		mode:    mode,
		stepCh:  make(chan struct{}),
	}
}

func (r *Replayer) speedFactor() float64 {
	switch r.mode {
	case ModeFast:
		return fastSpeedFactor
	case ModeSlow:
		return slowSpeedFactor
	default:
		return 1.0
	}
}

// Run drives the replay to completion (or until ctx is canceled). In
// ModeStep it blocks between packets until Step is called; in ModeLoop it
// restarts from the beginning once every packet has been delivered.
func (r *Replayer) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return fmt.Errorf("replay: already running")
	}
	r.started = true
	r.mu.Unlock()

	for {
		if err := r.runOnce(ctx); err != nil {
			return err
		}
		if r.mode != ModeLoop {
			return nil
		}
		r.mu.Lock()
		r.index = 0
		r.mu.Unlock()
	}
}

func (r *Replayer) runOnce(ctx context.Context) error {
	var last time.Duration
	for {
		r.mu.Lock()
		if r.index >= len(r.packets) {
			r.mu.Unlock()
			return nil
		}
		pkt := r.packets[r.index]
		r.mu.Unlock()

		if r.mode == ModeStep {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.stepCh:
			}
		} else {
			gap := pkt.Elapsed - last
			if gap > 0 {
				scaled := time.Duration(float64(gap) / r.speedFactor())
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(scaled):
				}
			}
		}

		for {
			r.mu.Lock()
			paused := r.paused
			r.mu.Unlock()
			if !paused {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(50 * time.Millisecond):
			}
		}

		r.bus.Publish(pkt.PacketEvent)

		r.mu.Lock()
		last = pkt.Elapsed
		r.index++
		r.mu.Unlock()
	}
}

// Step advances a ModeStep replayer by exactly one packet.
func (r *Replayer) Step() {
	select {
	case r.stepCh <- struct{}{}:
	default:
	}
}

// Pause freezes delivery without losing the current index.
func (r *Replayer) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
}

// Resume undoes Pause.
func (r *Replayer) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
}

// Progress reports the current/total packet counts and percent complete.
func (r *Replayer) Progress() (current, total int, percent float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current = r.index
	total = len(r.packets)
	if total > 0 {
		percent = float64(current) / float64(total) * 100
	}
	return
}
