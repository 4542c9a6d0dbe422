package replay

import (
	"context"
	"testing"
	"time"

	"github.com/ioprotolab/simhub/internal/capture"
	"github.com/ioprotolab/simhub/internal/record"
)

func recordedSequence() []record.RecordedPacket {
	return []record.RecordedPacket{
		{PacketEvent: capture.PacketEvent{Protocol: "modbus", Info: "one"}, Elapsed: 0},
		{PacketEvent: capture.PacketEvent{Protocol: "modbus", Info: "two"}, Elapsed: 20 * time.Millisecond},
		{PacketEvent: capture.PacketEvent{Protocol: "modbus", Info: "three"}, Elapsed: 40 * time.Millisecond},
	}
}

func TestReplayerNormalModeDeliversInOrder(t *testing.T) {
	bus := capture.NewBus()
	ch, unsub := bus.Subscribe(10)
	defer unsub()

	r := NewReplayer(bus, recordedSequence(), ModeNormal)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var got []string
	for i := 0; i < 3; i++ {
		select {
		case evt := <-ch:
			got = append(got, evt.Info)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for replayed packet")
		}
	}
	if got[0] != "one" || got[1] != "two" || got[2] != "three" {
		t.Fatalf("expected in-order delivery, got %v", got)
	}

	current, total, percent := r.Progress()
	if current != total || percent != 100 {
		t.Fatalf("expected replay complete, got %d/%d (%.0f%%)", current, total, percent)
	}
}

func TestReplayerStepModeWaitsForStep(t *testing.T) {
	bus := capture.NewBus()
	ch, unsub := bus.Subscribe(10)
	defer unsub()

	r := NewReplayer(bus, recordedSequence(), ModeStep)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	for i := 0; i < 3; i++ {
		time.Sleep(10 * time.Millisecond)
		r.Step()
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for stepped packet")
		}
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("replay did not finish after stepping through all packets")
	}
}

func TestReplayerPauseResume(t *testing.T) {
	bus := capture.NewBus()
	ch, unsub := bus.Subscribe(10)
	defer unsub()

	r := NewReplayer(bus, recordedSequence(), ModeFast)
	r.Pause()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-ch:
		t.Fatal("expected no delivery while paused")
	case <-time.After(100 * time.Millisecond):
	}

	r.Resume()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("replay did not complete after resume")
	}
}
