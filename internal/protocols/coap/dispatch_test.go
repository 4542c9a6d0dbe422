package coap

import (
	"net"
	"testing"

	"go.uber.org/zap"
)

func testAddr(t *testing.T) *net.UDPAddr {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp", "127.0.0.1:9999")
	if err != nil {
		t.Fatalf("ResolveUDPAddr: %v", err)
	}
	return addr
}

func TestDispatchGetNotFound(t *testing.T) {
	s := NewServer("127.0.0.1", 0, NewStore(), nil, nil, zap.NewNop())
	req := &Message{Code: CodeGET, MessageID: 1, Options: URIPathOptions("missing")}
	resp := s.dispatch(req, testAddr(t))
	if resp.Code != CodeNotFound {
		t.Fatalf("expected 4.04, got %#x", resp.Code)
	}
}

func TestDispatchGetContent(t *testing.T) {
	store := NewStore()
	store.Put("sensors/temp", ContentFormatJSON, []byte(`{"value":21}`))
	s := NewServer("127.0.0.1", 0, store, nil, nil, zap.NewNop())

	req := &Message{Code: CodeGET, MessageID: 1, Options: URIPathOptions("sensors/temp")}
	resp := s.dispatch(req, testAddr(t))
	if resp.Code != CodeContent || string(resp.Payload) != `{"value":21}` {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestDispatchPutOnNonExistentPathReturnsNotFound(t *testing.T) {
	s := NewServer("127.0.0.1", 0, NewStore(), nil, nil, zap.NewNop())
	req := &Message{Code: CodePUT, MessageID: 1, Options: URIPathOptions("missing"), Payload: []byte("x")}
	resp := s.dispatch(req, testAddr(t))
	if resp.Code != CodeNotFound {
		t.Fatalf("expected 4.04 on PUT to non-existent path, got %#x", resp.Code)
	}
}

func TestDispatchPutChangesExisting(t *testing.T) {
	store := NewStore()
	store.Put("sensors/temp", ContentFormatJSON, []byte(`{"value":21}`))
	s := NewServer("127.0.0.1", 0, store, nil, nil, zap.NewNop())

	req := &Message{Code: CodePUT, MessageID: 1, Options: URIPathOptions("sensors/temp"), Payload: []byte(`{"value":99}`)}
	resp := s.dispatch(req, testAddr(t))
	if resp.Code != CodeChanged {
		t.Fatalf("expected 2.04 changed, got %#x", resp.Code)
	}
	res, _ := store.Get("sensors/temp")
	if string(res.Payload) != `{"value":99}` {
		t.Fatalf("expected store updated, got %s", res.Payload)
	}
}

func TestDispatchPostCreates(t *testing.T) {
	s := NewServer("127.0.0.1", 0, NewStore(), nil, nil, zap.NewNop())
	req := &Message{Code: CodePOST, MessageID: 1, Options: URIPathOptions("new/resource"), Payload: []byte("x")}
	resp := s.dispatch(req, testAddr(t))
	if resp.Code != CodeCreated {
		t.Fatalf("expected 2.01 created, got %#x", resp.Code)
	}
	if _, ok := s.Store.Get("new/resource"); !ok {
		t.Fatal("expected resource to now exist")
	}
}

func TestDispatchDeleteUnknownIsNotFound(t *testing.T) {
	s := NewServer("127.0.0.1", 0, NewStore(), nil, nil, zap.NewNop())
	req := &Message{Code: CodeDELETE, MessageID: 1, Options: URIPathOptions("missing")}
	resp := s.dispatch(req, testAddr(t))
	if resp.Code != CodeNotFound {
		t.Fatalf("expected 4.04, got %#x", resp.Code)
	}
}

func TestDispatchObserveRegisterAndDeregister(t *testing.T) {
	store := NewStore()
	store.Put("sensors/temp", ContentFormatJSON, []byte(`{"value":21}`))
	s := NewServer("127.0.0.1", 0, store, nil, nil, zap.NewNop())
	addr := testAddr(t)

	req := &Message{Code: CodeGET, MessageID: 1, Token: []byte{1}, Options: append(URIPathOptions("sensors/temp"), ObserveOption(0))}
	resp := s.dispatch(req, addr)
	if resp.Code != CodeContent {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(store.observersOf("sensors/temp")) != 1 {
		t.Fatal("expected one observer registered")
	}

	deregister := &Message{Code: CodeGET, MessageID: 2, Token: []byte{1}, Options: append(URIPathOptions("sensors/temp"), ObserveOption(1))}
	s.dispatch(deregister, addr)
	if len(store.observersOf("sensors/temp")) != 0 {
		t.Fatal("expected observer to be removed")
	}
}

func TestDispatchUnknownMethod(t *testing.T) {
	s := NewServer("127.0.0.1", 0, NewStore(), nil, nil, zap.NewNop())
	req := &Message{Code: 0x1F, MessageID: 1}
	resp := s.dispatch(req, testAddr(t))
	if resp.Code != CodeMethodNotAllowed {
		t.Fatalf("expected method-not-allowed, got %#x", resp.Code)
	}
}
