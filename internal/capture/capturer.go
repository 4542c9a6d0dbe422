package capture

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// CapturedPacket is the ring-buffer entry the capturer retains: a
// PacketEvent plus whatever lazily-decoded protocol view was requested for
// it (filled in by Decoded on first access, not at capture time).
type CapturedPacket struct {
	PacketEvent
	decodedOnce sync.Once
	decoded     map[string]interface{}
	decodeFn    func(PacketEvent) map[string]interface{}
}

// Decoded lazily runs the registered per-protocol decoder for this packet's
// Protocol field and caches the result. A packet with no registered decoder
// returns nil.
func (c *CapturedPacket) Decoded() map[string]interface{} {
	c.decodedOnce.Do(func() {
		if c.decodeFn != nil {
			c.decoded = c.decodeFn(c.PacketEvent)
		}
	})
	return c.decoded
}

// FilterRule is one entry of a capturer's filter chain. Rules are
// evaluated in order and the first rule whose predicate matches wins
// (first-match-wins, not most-specific-wins); a packet that matches no
// rule and no allow-list is kept only when the capturer has no active
// filters at all.
type FilterRule struct {
	Protocols []string
	Ports     []int
	Addresses []string
	Keyword   string
	Allow     bool
}

func (r FilterRule) matches(evt PacketEvent) bool {
	if len(r.Protocols) > 0 && !containsFold(r.Protocols, evt.Protocol) {
		return false
	}
	if len(r.Ports) > 0 && !containsInt(r.Ports, evt.SrcPort) && !containsInt(r.Ports, evt.DstPort) {
		return false
	}
	if len(r.Addresses) > 0 && !containsFold(r.Addresses, evt.SrcAddr) && !containsFold(r.Addresses, evt.DstAddr) {
		return false
	}
	if r.Keyword != "" && !strings.Contains(strings.ToLower(evt.Info), strings.ToLower(r.Keyword)) {
		return false
	}
	return true
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Capturer subscribes to a Bus and keeps a bounded ring buffer of the
// packets that survive its filter chain. Overflow drops the oldest packet
// (FIFO), never the newest.
type Capturer struct {
	mu       sync.Mutex
	bus      *Bus
	unsub    func()
	size     int
	buf      []*CapturedPacket
	filters  []FilterRule
	decoders map[string]func(PacketEvent) map[string]interface{}
}

// NewCapturer builds a Capturer bounded to size entries. size <= 0 falls
// back to 10000, matching the default capture ring size.
func NewCapturer(bus *Bus, size int) *Capturer {
	if size <= 0 {
		size = 10000
	}
	return &Capturer{
		bus:      bus,
		size:     size,
		decoders: make(map[string]func(PacketEvent) map[string]interface{}),
	}
}

// RegisterDecoder wires a protocol-specific decoded-view function, used
// lazily by CapturedPacket.Decoded.
func (c *Capturer) RegisterDecoder(protocol string, fn func(PacketEvent) map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decoders[strings.ToLower(protocol)] = fn
}

// SetFilters replaces the capturer's filter chain wholesale.
func (c *Capturer) SetFilters(rules []FilterRule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = rules
}

// Start begins consuming the bus until stop is called or the bus
// subscription channel is closed.
func (c *Capturer) Start() {
	ch, unsub := c.bus.Subscribe(256)
	c.mu.Lock()
	c.unsub = unsub
	c.mu.Unlock()

	go func() {
		for evt := range ch {
			c.ingest(evt)
		}
	}()
}

// Stop unsubscribes the capturer from its bus.
func (c *Capturer) Stop() {
	c.mu.Lock()
	unsub := c.unsub
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (c *Capturer) ingest(evt PacketEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.accept(evt) {
		return
	}

	cp := &CapturedPacket{PacketEvent: evt}
	if fn, ok := c.decoders[strings.ToLower(evt.Protocol)]; ok {
		cp.decodeFn = fn
	}

	if len(c.buf) >= c.size {
		c.buf = c.buf[1:]
	}
	c.buf = append(c.buf, cp)
}

// accept runs the filter chain. With no rules configured every packet is
// kept. Otherwise the first matching rule's Allow decides the packet's
// fate; a packet matching no rule is dropped.
func (c *Capturer) accept(evt PacketEvent) bool {
	if len(c.filters) == 0 {
		return true
	}
	for _, rule := range c.filters {
		if rule.matches(evt) {
			return rule.Allow
		}
	}
	return false
}

// Packets returns a snapshot copy of the currently retained packets,
// oldest first.
func (c *Capturer) Packets() []*CapturedPacket {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*CapturedPacket, len(c.buf))
	copy(out, c.buf)
	return out
}

// Clear empties the ring buffer.
func (c *Capturer) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf = nil
}

// exportPacket is the JSON-export shape for a captured packet: the raw
// PacketEvent fields plus its decoded view, if any. Payload is hex-encoded
// rather than the default base64 []byte encoding, so the export reads as
// a full packet list with readable hex payloads.
type exportPacket struct {
	Seq       uint64                 `json:"seq"`
	Timestamp time.Time              `json:"timestamp"`
	Direction string                 `json:"direction"`
	SrcAddr   string                 `json:"src_addr"`
	SrcPort   int                    `json:"src_port"`
	DstAddr   string                 `json:"dst_addr"`
	DstPort   int                    `json:"dst_port"`
	Protocol  string                 `json:"protocol"`
	Payload   string                 `json:"payload_hex"`
	Info      string                 `json:"info"`
	Decoded   map[string]interface{} `json:"decoded,omitempty"`
}

// ExportJSON renders the current buffer as a JSON array, the capturer's
// always-available export format.
func (c *Capturer) ExportJSON() ([]byte, error) {
	packets := c.Packets()
	out := make([]exportPacket, len(packets))
	for i, p := range packets {
		out[i] = exportPacket{
			Seq:       p.Seq,
			Timestamp: p.Timestamp,
			Direction: string(p.Direction),
			SrcAddr:   p.SrcAddr,
			SrcPort:   p.SrcPort,
			DstAddr:   p.DstAddr,
			DstPort:   p.DstPort,
			Protocol:  p.Protocol,
			Payload:   hex.EncodeToString(p.Payload),
			Info:      p.Info,
			Decoded:   p.Decoded(),
		}
	}
	return json.MarshalIndent(out, "", "  ")
}
