package fault

import (
	"math/rand"
	"testing"
	"time"
)

func TestRegistryPacketLossAlwaysDrops(t *testing.T) {
	r := NewRegistry()
	r.Enable("loss-1", Descriptor{
		Kind:   KindPacketLoss,
		Target: "modbus",
		Params: map[string]float64{"probability": 1.0},
	}, 0)

	ok, mod := r.ShouldModifyPacket("modbus", []byte{1, 2, 3})
	if !mod.Drop || !ok {
		t.Fatalf("expected packet dropped, got mod=%+v ok=%v", mod, ok)
	}
}

func TestRegistryPacketLossNeverFiresAtZeroProbability(t *testing.T) {
	r := NewRegistry()
	r.Enable("loss-1", Descriptor{
		Kind:   KindPacketLoss,
		Target: "modbus",
		Params: map[string]float64{"probability": 0},
	}, 0)

	dropped, _ := r.ShouldModifyPacket("modbus", []byte{1})
	if dropped {
		t.Fatal("expected no drop at probability 0")
	}
}

func TestRegistryTargetScoping(t *testing.T) {
	r := NewRegistry()
	r.Enable("loss-1", Descriptor{
		Kind:   KindPacketLoss,
		Target: "mqtt",
		Params: map[string]float64{"probability": 1.0},
	}, 0)

	dropped, _ := r.ShouldModifyPacket("modbus", []byte{1})
	if dropped {
		t.Fatal("expected fault scoped to mqtt not to affect modbus")
	}
}

func TestRegistryExpiry(t *testing.T) {
	r := NewRegistry()
	r.Enable("loss-1", Descriptor{
		Kind:   KindPacketLoss,
		Target: "*",
		Params: map[string]float64{"probability": 1.0},
	}, 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	dropped, _ := r.ShouldModifyPacket("modbus", []byte{1})
	if dropped {
		t.Fatal("expected expired fault to no longer fire")
	}
	if len(r.List()) != 0 {
		t.Fatal("expected expired fault pruned from List")
	}
}

func TestRegistryDisable(t *testing.T) {
	r := NewRegistry()
	r.Enable("loss-1", Descriptor{Kind: KindPacketLoss, Target: "*", Params: map[string]float64{"probability": 1.0}}, 0)
	r.Disable("loss-1")

	dropped, _ := r.ShouldModifyPacket("modbus", []byte{1})
	if dropped {
		t.Fatal("expected disabled fault to no longer fire")
	}
}

func TestReorderBufferReleasesAtDepth(t *testing.T) {
	buf := NewReorderBuffer(2)
	if _, ok := buf.Push([]byte("a")); ok {
		t.Fatal("expected no release below depth")
	}
	out, ok := buf.Push([]byte("b"))
	if !ok || string(out) != "a" {
		t.Fatalf("expected oldest packet released, got %q ok=%v", out, ok)
	}
}

func TestReorderBufferFlush(t *testing.T) {
	buf := NewReorderBuffer(5)
	buf.Push([]byte("a"))
	buf.Push([]byte("b"))
	remaining := buf.Flush()
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining packets, got %d", len(remaining))
	}
	if len(buf.Flush()) != 0 {
		t.Fatal("expected buffer empty after flush")
	}
}

func TestCorruptFlipsBits(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	original := []byte{0x00, 0x00, 0x00, 0x00}
	corrupted := Corrupt(rng, original)
	if len(corrupted) != len(original) {
		t.Fatalf("expected same length, got %d", len(corrupted))
	}
	same := true
	for i := range original {
		if original[i] != corrupted[i] {
			same = false
		}
	}
	if same {
		t.Fatal("expected corruption to flip at least one bit")
	}
}
