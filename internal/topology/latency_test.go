package topology

import "testing"

func TestLatencySimulatorSwitchesProfiles(t *testing.T) {
	s := NewLatencySimulator()
	s.SetProfile("poor")
	if s.current != "poor" {
		t.Fatalf("expected profile switch to poor, got %q", s.current)
	}
	s.SetProfile("not-a-real-profile")
	if s.current != "poor" {
		t.Fatalf("expected unknown profile to be ignored, got %q", s.current)
	}
}

func TestLatencyNeverNegative(t *testing.T) {
	s := NewLatencySimulator()
	s.SetProfile("excellent")
	for i := 0; i < 200; i++ {
		if s.Latency() < 0 {
			t.Fatal("expected latency to never go negative")
		}
	}
}

func TestShouldDropPacketZeroLossNeverDrops(t *testing.T) {
	s := NewLatencySimulator()
	s.SetProfile("normal")
	for i := 0; i < 500; i++ {
		if s.ShouldDropPacket() {
			t.Fatal("expected zero-loss profile to never drop")
		}
	}
}
