package rawtcp

import (
	"sync"
	"time"
)

// ConnState mirrors the subset of TCP connection states this simulator
// tracks for inspection (original_source tcp.py's TCPConnectionState,
// trimmed to the states a simulated server actually transitions through).
type ConnState int

const (
	StateEstablished ConnState = iota
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateEstablished:
		return "ESTABLISHED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Connection tracks one accepted client, for inspection via the HTTP
// collaborator's devices/connections views.
type Connection struct {
	mu sync.Mutex

	ID            string
	RemoteAddr    string
	LocalAddr     string
	State         ConnState
	EstablishedAt time.Time
	LastActivity  time.Time
	BytesSent     int64
	BytesReceived int64
	MessagesSent  int64
	MessagesRecv  int64
}

func newConnection(id, remote, local string) *Connection {
	now := time.Now().UTC()
	return &Connection{ID: id, RemoteAddr: remote, LocalAddr: local, State: StateEstablished, EstablishedAt: now, LastActivity: now}
}

func (c *Connection) recordReceived(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BytesReceived += int64(n)
	c.LastActivity = time.Now().UTC()
}

func (c *Connection) recordMessageReceived() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MessagesRecv++
}

func (c *Connection) recordSent(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BytesSent += int64(n)
	c.MessagesSent++
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.State = StateClosed
}

// Snapshot is a point-in-time copy of a Connection safe to hand to a caller
// without holding the connection's lock.
type Snapshot struct {
	ID            string
	RemoteAddr    string
	LocalAddr     string
	State         string
	EstablishedAt time.Time
	LastActivity  time.Time
	BytesSent     int64
	BytesReceived int64
	MessagesSent  int64
	MessagesRecv  int64
}

func (c *Connection) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ID:            c.ID,
		RemoteAddr:    c.RemoteAddr,
		LocalAddr:     c.LocalAddr,
		State:         c.State.String(),
		EstablishedAt: c.EstablishedAt,
		LastActivity:  c.LastActivity,
		BytesSent:     c.BytesSent,
		BytesReceived: c.BytesReceived,
		MessagesSent:  c.MessagesSent,
		MessagesRecv:  c.MessagesRecv,
	}
}
