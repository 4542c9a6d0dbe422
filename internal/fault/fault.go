// Package fault implements the fault-injection registry: a set of named,
// independently toggleable fault descriptors each protocol simulator
// consults before sending or after receiving a packet, shared across
// every protocol rather than duplicated per scenario.
package fault

import (
	"math/rand"
	"sync"
	"time"
)

// Kind names one injectable fault.
type Kind string

const (
	KindPacketLoss     Kind = "packet_loss"
	KindLatencySpike   Kind = "latency_spike"
	KindJitter         Kind = "jitter"
	KindCorruption     Kind = "corruption"
	KindReordering     Kind = "reordering"
	KindDuplication    Kind = "duplication"
	KindConnectionDrop Kind = "connection_drop"
	KindProtocolError  Kind = "protocol_error"
	KindDeviceOffline  Kind = "device_offline"
)

// Descriptor is one registered fault: its kind, the target(s) it applies
// to, and the parameters controlling its effect.
type Descriptor struct {
	Kind       Kind
	Target     string // protocol name, or "*" for every protocol
	Active     bool
	Params     map[string]float64
	expiresAt  time.Time
	hasExpiry  bool
}

// Modification describes what a fault did to a packet, for logging and
// for the capture event's Info field.
type Modification struct {
	Kind   Kind
	Drop   bool
	Delay  time.Duration
	Reason string
}

// Registry holds the active fault set for one simhub process.
type Registry struct {
	mu     sync.Mutex
	faults map[string]*Descriptor
	rng    *rand.Rand
}

func NewRegistry() *Registry {
	return &Registry{
		faults: make(map[string]*Descriptor),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Enable registers (or replaces) a fault under the given id. duration <= 0
// means the fault stays active until explicitly disabled.
func (r *Registry) Enable(id string, d Descriptor, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.Active = true
	if duration > 0 {
		d.hasExpiry = true
		d.expiresAt = time.Now().Add(duration)
	}
	r.faults[id] = &d
}

// Disable removes a fault by id.
func (r *Registry) Disable(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.faults, id)
}

// List returns a snapshot of the active faults, pruning expired ones.
func (r *Registry) List() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneExpiredLocked()

	out := make([]Descriptor, 0, len(r.faults))
	for _, d := range r.faults {
		out = append(out, *d)
	}
	return out
}

func (r *Registry) pruneExpiredLocked() {
	now := time.Now()
	for id, d := range r.faults {
		if d.hasExpiry && now.After(d.expiresAt) {
			delete(r.faults, id)
		}
	}
}

// ShouldModifyPacket is the synchronous hook every protocol server calls
// around a send/receive. It runs a Bernoulli draw per matching active
// fault, visiting the registry map in Go's unspecified iteration order,
// and returns the first modification that fires. Kinds have no precedence
// over one another: with several matching faults active, whichever fires
// first in that order is the one reported.
func (r *Registry) ShouldModifyPacket(protocol string, payload []byte) (bool, Modification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneExpiredLocked()

	for _, d := range r.faults {
		if !d.Active || (d.Target != "*" && d.Target != protocol) {
			continue
		}
		if mod, ok := r.evaluate(d); ok {
			return true, mod
		}
	}
	return false, Modification{}
}

func (r *Registry) evaluate(d *Descriptor) (Modification, bool) {
	switch d.Kind {
	case KindPacketLoss, KindDeviceOffline:
		if r.rng.Float64() < d.Params["probability"] {
			return Modification{Kind: d.Kind, Drop: true, Reason: string(d.Kind)}, true
		}
	case KindConnectionDrop:
		if r.rng.Float64() < d.Params["probability"] {
			return Modification{Kind: d.Kind, Drop: true, Reason: "connection dropped"}, true
		}
	case KindLatencySpike:
		if r.rng.Float64() < d.Params["probability"] {
			ms := d.Params["delay_ms"]
			if ms <= 0 {
				ms = 500
			}
			return Modification{Kind: d.Kind, Delay: time.Duration(ms) * time.Millisecond, Reason: "latency spike"}, true
		}
	case KindJitter:
		maxMs := d.Params["max_jitter_ms"]
		if maxMs <= 0 {
			maxMs = 50
		}
		jitter := time.Duration(r.rng.Float64()*maxMs) * time.Millisecond
		return Modification{Kind: d.Kind, Delay: jitter, Reason: "jitter"}, true
	case KindCorruption:
		if r.rng.Float64() < d.Params["probability"] {
			return Modification{Kind: d.Kind, Reason: "payload corrupted"}, true
		}
	case KindProtocolError:
		if r.rng.Float64() < d.Params["probability"] {
			return Modification{Kind: d.Kind, Reason: "protocol error injected"}, true
		}
	case KindReordering, KindDuplication:
		// Not applied here: these faults need state across multiple packets,
		// unlike the stateless per-packet draws above. ReorderBuffer,
		// Duplicate and RollProbability are the pieces a caller would combine
		// to apply them; no protocol server in this module calls them, so
		// these two kinds change no traffic.
		return Modification{}, false
	}
	return Modification{}, false
}

// RollProbability draws against a named fault's "probability" parameter,
// for a caller (such as one driving a ReorderBuffer) that needs
// the registry's Bernoulli source but implement the stateful effect
// themselves.
func (r *Registry) RollProbability(protocol string, kind Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneExpiredLocked()

	for _, d := range r.faults {
		if d.Active && d.Kind == kind && (d.Target == "*" || d.Target == protocol) {
			return r.rng.Float64() < d.Params["probability"]
		}
	}
	return false
}

// Corrupt flips a pseudo-random subset of bits in payload, used by
// callers that received a Modification with Kind == KindCorruption.
func Corrupt(rng *rand.Rand, payload []byte) []byte {
	if len(payload) == 0 {
		return payload
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	n := 1 + rng.Intn(len(out))
	for i := 0; i < n; i++ {
		idx := rng.Intn(len(out))
		bit := uint(rng.Intn(8))
		out[idx] ^= 1 << bit
	}
	return out
}
