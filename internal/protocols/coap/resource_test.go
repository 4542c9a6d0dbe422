package coap

import "testing"

func TestStorePutGetDelete(t *testing.T) {
	s := NewStore()
	s.Put("a/b", ContentFormatJSON, []byte("1"))
	res, ok := s.Get("a/b")
	if !ok || string(res.Payload) != "1" {
		t.Fatalf("unexpected get result: %+v ok=%v", res, ok)
	}
	if !s.Delete("a/b") {
		t.Fatal("expected delete to report existing resource")
	}
	if _, ok := s.Get("a/b"); ok {
		t.Fatal("expected resource gone after delete")
	}
	if s.Delete("a/b") {
		t.Fatal("expected second delete of same path to report false")
	}
}

func TestStoreObserveDedupesSameAddr(t *testing.T) {
	s := NewStore()
	addr := testAddr(t)
	s.Observe("a/b", addr, []byte{1})
	s.Observe("a/b", addr, []byte{1})
	if len(s.observersOf("a/b")) != 1 {
		t.Fatalf("expected observe to dedupe by address, got %d", len(s.observersOf("a/b")))
	}
}

func TestStoreNextSeqIncrements(t *testing.T) {
	s := NewStore()
	if s.nextSeq("a") != 1 || s.nextSeq("a") != 2 {
		t.Fatal("expected sequence to increment per call")
	}
}
