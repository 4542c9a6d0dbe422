package rawtcp

import "testing"

func TestNewConnectionStartsEstablished(t *testing.T) {
	c := newConnection("abc123", "10.0.0.1:5555", "10.0.0.2:8080")
	if c.State != StateEstablished {
		t.Fatalf("expected new connection to start ESTABLISHED, got %s", c.State)
	}
	snap := c.Snapshot()
	if snap.ID != "abc123" || snap.RemoteAddr != "10.0.0.1:5555" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestConnectionRecordingUpdatesCounters(t *testing.T) {
	c := newConnection("abc", "a", "b")
	c.recordReceived(10)
	c.recordMessageReceived()
	c.recordSent(5)

	snap := c.Snapshot()
	if snap.BytesReceived != 10 || snap.MessagesRecv != 1 || snap.BytesSent != 5 || snap.MessagesSent != 1 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
}

func TestConnectionCloseUpdatesState(t *testing.T) {
	c := newConnection("abc", "a", "b")
	c.close()
	if c.Snapshot().State != "CLOSED" {
		t.Fatalf("expected CLOSED after close, got %s", c.Snapshot().State)
	}
}
