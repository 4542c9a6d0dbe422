package events

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"
)

// ZMQBus satisfies the same event-type/"topic" contract as a ZeroMQ
// PUB/SUB socket (a topic frame followed by a payload frame) without
// binding to an actual ZeroMQ library: no ZMQ Go binding appears anywhere
// in this module's dependency pack, and fabricating one would mean
// vendoring a fake. Instead this is a small length-prefixed multipart TCP
// framer — one frame carries the event type, the next the JSON payload —
// so a process that only understands "connect, read two length-prefixed
// frames" can still consume the bus, which is the behavioral contract
// callers actually need (see SPEC_FULL.md's note on this backend).
type ZMQBus struct {
	addr        string
	historySize int

	mu       sync.Mutex
	ln       net.Listener
	conns    map[net.Conn]bool
	subs     []subscription
	nextID   int
	order    int
	history  map[string][]Event
	closed   bool
}

// NewZMQBus starts listening on addr for multipart-framer subscribers and
// returns a Bus. Local in-process Subscribe calls are served directly, the
// same as MemoryBus; remote subscribers connect over TCP and receive every
// published frame.
func NewZMQBus(addr string, historySize int) (*ZMQBus, error) {
	if historySize <= 0 {
		historySize = 1000
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("events: zmq listen %s: %w", addr, err)
	}
	b := &ZMQBus{
		addr:        addr,
		historySize: historySize,
		ln:          ln,
		conns:       make(map[net.Conn]bool),
		history:     make(map[string][]Event),
	}
	go b.acceptLoop()
	return b, nil
}

func (b *ZMQBus) acceptLoop() {
	for {
		conn, err := b.ln.Accept()
		if err != nil {
			return
		}
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			conn.Close()
			return
		}
		b.conns[conn] = true
		b.mu.Unlock()
	}
}

// writeFrame writes a length-prefixed frame: a 4-byte big-endian length
// followed by the frame bytes.
func writeFrame(w io.Writer, frame []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(frame)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(frame)
	return err
}

func (b *ZMQBus) Publish(evt Event) error {
	b.mu.Lock()
	hist := append(b.history[evt.Type], evt)
	if len(hist) > b.historySize {
		hist = hist[len(hist)-b.historySize:]
	}
	b.history[evt.Type] = hist

	matching := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.eventType == "*" || s.eventType == evt.Type {
			matching = append(matching, s)
		}
	}
	conns := make([]net.Conn, 0, len(b.conns))
	for c := range b.conns {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for i := 0; i < len(matching); i++ {
		for j := i + 1; j < len(matching); j++ {
			if matching[j].priority > matching[i].priority ||
				(matching[j].priority == matching[i].priority && matching[j].order < matching[i].order) {
				matching[i], matching[j] = matching[j], matching[i]
			}
		}
	}
	for _, s := range matching {
		s.handler(evt)
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	for _, c := range conns {
		if err := writeFrame(c, []byte(evt.Type)); err != nil {
			b.dropConn(c)
			continue
		}
		if err := writeFrame(c, data); err != nil {
			b.dropConn(c)
		}
	}
	return nil
}

func (b *ZMQBus) dropConn(c net.Conn) {
	b.mu.Lock()
	delete(b.conns, c)
	b.mu.Unlock()
	c.Close()
}

func (b *ZMQBus) Subscribe(eventType string, priority Priority, handler Handler) (func(), error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	order := b.order
	b.order++
	b.subs = append(b.subs, subscription{id: id, eventType: eventType, priority: priority, order: order, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
	}, nil
}

func (b *ZMQBus) History(eventType string, limit int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Event
	if eventType == "*" {
		for _, evts := range b.history {
			out = append(out, evts...)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	} else {
		out = append(out, b.history[eventType]...)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (b *ZMQBus) Close() error {
	b.mu.Lock()
	b.closed = true
	for c := range b.conns {
		c.Close()
	}
	b.mu.Unlock()
	return b.ln.Close()
}
