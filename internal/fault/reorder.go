package fault

import "sync"

// ReorderBuffer is a fixed-depth holding queue for the reordering fault:
// it holds back packets until depth are pending and then releases the
// oldest, so packets leave in the order they arrived, each one delayed
// behind depth-1 later arrivals. It does not shuffle the pending packets
// and never releases a packet twice (duplication is Duplicate's job).
type ReorderBuffer struct {
	mu      sync.Mutex
	depth   int
	pending [][]byte
}

func NewReorderBuffer(depth int) *ReorderBuffer {
	if depth <= 0 {
		depth = 3
	}
	return &ReorderBuffer{depth: depth}
}

// Push stages a packet and returns the packet (if any) that should be
// released now instead: the oldest pending packet once the buffer
// reaches its configured depth.
func (b *ReorderBuffer) Push(payload []byte) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, payload)
	if len(b.pending) < b.depth {
		return nil, false
	}
	out := b.pending[0]
	b.pending = b.pending[1:]
	return out, true
}

// Flush releases every remaining buffered packet in the order they were
// pushed, for use at connection teardown.
func (b *ReorderBuffer) Flush() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	return out
}

// Duplicate returns two copies of payload when the duplication fault's
// Bernoulli draw fires, for a caller to send back to back.
func Duplicate(payload []byte) [][]byte {
	dup := make([]byte, len(payload))
	copy(dup, payload)
	return [][]byte{payload, dup}
}
