package rawtcp

import "testing"

func TestRespondDefaultsToEcho(t *testing.T) {
	s := NewServer("127.0.0.1", 0, ModeRaw, nil, nil)
	conn := newConnection("x", "a", "b")
	resp := s.respond(conn, []byte("ping"))
	if string(resp) != "ping" {
		t.Fatalf("expected echo, got %q", resp)
	}
}

func TestRespondUsesCustomHandler(t *testing.T) {
	s := NewServer("127.0.0.1", 0, ModeRaw, nil, nil)
	s.Handler = func(conn *Connection, msg []byte) []byte {
		return append([]byte("ack:"), msg...)
	}
	conn := newConnection("x", "a", "b")
	resp := s.respond(conn, []byte("ping"))
	if string(resp) != "ack:ping" {
		t.Fatalf("expected custom handler response, got %q", resp)
	}
}

func TestConnectionsSnapshotReflectsTracked(t *testing.T) {
	s := NewServer("127.0.0.1", 0, ModeRaw, nil, nil)
	conn := newConnection("x", "a", "b")
	s.mu.Lock()
	s.conns["x"] = conn
	s.mu.Unlock()

	snaps := s.Connections()
	if len(snaps) != 1 || snaps[0].ID != "x" {
		t.Fatalf("expected 1 tracked connection, got %+v", snaps)
	}
}
