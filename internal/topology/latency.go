package topology

import (
	"math/rand"
	"sync"
	"time"
)

// LatencyProfile bundles a base latency, jitter, and loss rate, mirroring
// the original LatencySimulator's named profiles.
type LatencyProfile struct {
	LatencyMS   float64
	JitterMS    float64
	LossPercent float64
}

// DefaultLatencyProfiles mirrors the original's normal/congested/poor/
// excellent profile table.
func DefaultLatencyProfiles() map[string]LatencyProfile {
	return map[string]LatencyProfile{
		"normal":    {LatencyMS: 10, JitterMS: 2, LossPercent: 0},
		"congested": {LatencyMS: 100, JitterMS: 20, LossPercent: 2},
		"poor":      {LatencyMS: 500, JitterMS: 100, LossPercent: 5},
		"excellent": {LatencyMS: 2, JitterMS: 0.5, LossPercent: 0},
	}
}

// LatencySimulator draws per-call latency and drop decisions from whichever
// named profile is currently active, independent of internal/fault's
// per-protocol fault registry: this models ambient link quality, not an
// operator-toggled injected fault.
type LatencySimulator struct {
	mu       sync.Mutex
	profiles map[string]LatencyProfile
	current  string
	rng      *rand.Rand
}

func NewLatencySimulator() *LatencySimulator {
	return &LatencySimulator{
		profiles: DefaultLatencyProfiles(),
		current:  "normal",
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetProfile switches the active profile; unknown names are ignored.
func (s *LatencySimulator) SetProfile(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[name]; ok {
		s.current = name
	}
}

// Latency draws a simulated latency duration (base +/- gaussian jitter,
// floored at zero).
func (s *LatencySimulator) Latency() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profiles[s.current]
	ms := p.LatencyMS + s.rng.NormFloat64()*p.JitterMS
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// ShouldDropPacket draws a Bernoulli decision against the active profile's
// loss percentage.
func (s *LatencySimulator) ShouldDropPacket() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profiles[s.current]
	return s.rng.Float64() < p.LossPercent/100
}
