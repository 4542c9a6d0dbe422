// Package record implements traffic recording sessions: each session
// subscribes to a capture.Bus and appends every packet it sees, with
// timestamps preserved for later replay.
package record

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ioprotolab/simhub/internal/capture"
)

// RecordedPacket is one entry of a recording session: the original
// PacketEvent plus the elapsed time since the session started, which is
// what replay uses to reconstruct inter-arrival gaps.
type RecordedPacket struct {
	capture.PacketEvent
	Elapsed time.Duration
}

// Stats summarizes a finished or in-progress recording session.
type Stats struct {
	PacketCount   int
	ByteCount     int
	Duration      time.Duration
	PacketsPerSec float64
	Protocols     []string
}

// Session is one named recording: an append-only list of RecordedPackets
// collected between Start and Stop.
type Session struct {
	ID        string
	Name      string
	StartedAt time.Time
	StoppedAt time.Time

	mu       sync.Mutex
	packets  []RecordedPacket
	protocol map[string]bool
	unsub    func()
	running  bool
}

// Packets returns a snapshot copy of everything recorded so far.
func (s *Session) Packets() []RecordedPacket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedPacket, len(s.packets))
	copy(out, s.packets)
	return out
}

// Stats computes the session's summary. For a running session, Duration
// is measured against time.Now via the supplied now argument so tests can
// control it deterministically.
func (s *Session) Stats(now time.Time) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	end := s.StoppedAt
	if end.IsZero() {
		end = now
	}
	duration := end.Sub(s.StartedAt)

	bytes := 0
	for _, p := range s.packets {
		bytes += len(p.Payload)
	}

	protocols := make([]string, 0, len(s.protocol))
	for p := range s.protocol {
		protocols = append(protocols, p)
	}

	var pps float64
	if duration > 0 {
		pps = float64(len(s.packets)) / duration.Seconds()
	}

	return Stats{
		PacketCount:   len(s.packets),
		ByteCount:     bytes,
		Duration:      duration,
		PacketsPerSec: pps,
		Protocols:     protocols,
	}
}

func (s *Session) ingest(evt capture.PacketEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.packets = append(s.packets, RecordedPacket{
		PacketEvent: evt,
		Elapsed:     evt.Timestamp.Sub(s.StartedAt),
	})
	s.protocol[evt.Protocol] = true
}

// Recorder owns the set of recording sessions for one simhub process.
type Recorder struct {
	bus *capture.Bus

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRecorder(bus *capture.Bus) *Recorder {
	return &Recorder{bus: bus, sessions: make(map[string]*Session)}
}

// Start begins a new named recording session subscribed to the
// recorder's bus.
func (r *Recorder) Start(name string) *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		Name:      name,
		StartedAt: time.Now(),
		protocol:  make(map[string]bool),
		running:   true,
	}

	ch, unsub := r.bus.Subscribe(256)
	sess.unsub = unsub
	go func() {
		for evt := range ch {
			sess.ingest(evt)
		}
	}()

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()

	return sess
}

// Stop ends a running session and returns its final stats.
func (r *Recorder) Stop(id string) (Stats, bool) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return Stats{}, false
	}

	sess.mu.Lock()
	if !sess.running {
		sess.mu.Unlock()
		return sess.Stats(time.Now()), true
	}
	sess.running = false
	sess.StoppedAt = time.Now()
	unsub := sess.unsub
	sess.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	return sess.Stats(time.Now()), true
}

// Get returns a session by id.
func (r *Recorder) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// List returns every known session.
func (r *Recorder) List() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	return out
}
