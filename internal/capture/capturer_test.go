package capture

import (
	"bytes"
	"testing"
	"time"
)

func publishAndWait(t *testing.T, bus *Bus, evt PacketEvent) {
	t.Helper()
	bus.Publish(evt)
	time.Sleep(20 * time.Millisecond)
}

func TestCapturerFiltersFirstMatchWins(t *testing.T) {
	bus := NewBus()
	capr := NewCapturer(bus, 10)
	capr.SetFilters([]FilterRule{
		{Protocols: []string{"modbus"}, Allow: true},
		{Protocols: []string{"mqtt"}, Allow: false},
	})
	capr.Start()
	defer capr.Stop()

	publishAndWait(t, bus, PacketEvent{Protocol: "modbus", Info: "read holding"})
	publishAndWait(t, bus, PacketEvent{Protocol: "mqtt", Info: "publish"})
	publishAndWait(t, bus, PacketEvent{Protocol: "coap", Info: "get"})

	packets := capr.Packets()
	if len(packets) != 1 {
		t.Fatalf("expected 1 retained packet, got %d", len(packets))
	}
	if packets[0].Protocol != "modbus" {
		t.Fatalf("expected modbus packet retained, got %s", packets[0].Protocol)
	}
}

func TestCapturerNoFiltersKeepsEverything(t *testing.T) {
	bus := NewBus()
	capr := NewCapturer(bus, 10)
	capr.Start()
	defer capr.Stop()

	publishAndWait(t, bus, PacketEvent{Protocol: "modbus"})
	publishAndWait(t, bus, PacketEvent{Protocol: "mqtt"})

	if len(capr.Packets()) != 2 {
		t.Fatalf("expected both packets retained, got %d", len(capr.Packets()))
	}
}

func TestCapturerRingBufferDropsOldest(t *testing.T) {
	bus := NewBus()
	capr := NewCapturer(bus, 2)
	capr.Start()
	defer capr.Stop()

	publishAndWait(t, bus, PacketEvent{Protocol: "modbus", Info: "first"})
	publishAndWait(t, bus, PacketEvent{Protocol: "modbus", Info: "second"})
	publishAndWait(t, bus, PacketEvent{Protocol: "modbus", Info: "third"})

	packets := capr.Packets()
	if len(packets) != 2 {
		t.Fatalf("expected ring bounded to 2, got %d", len(packets))
	}
	if packets[0].Info != "second" || packets[1].Info != "third" {
		t.Fatalf("expected oldest dropped, got %q then %q", packets[0].Info, packets[1].Info)
	}
}

func TestCapturerDecodedLazyAndCached(t *testing.T) {
	bus := NewBus()
	capr := NewCapturer(bus, 10)
	calls := 0
	capr.RegisterDecoder("modbus", func(evt PacketEvent) map[string]interface{} {
		calls++
		return map[string]interface{}{"function_code": 3}
	})
	capr.Start()
	defer capr.Stop()

	publishAndWait(t, bus, PacketEvent{Protocol: "modbus"})
	packets := capr.Packets()
	if len(packets) != 1 {
		t.Fatalf("expected 1 packet, got %d", len(packets))
	}
	packets[0].Decoded()
	packets[0].Decoded()
	if calls != 1 {
		t.Fatalf("expected decoder called once (cached), got %d", calls)
	}
}

func TestCapturerExportJSON(t *testing.T) {
	bus := NewBus()
	capr := NewCapturer(bus, 10)
	capr.Start()
	defer capr.Stop()

	publishAndWait(t, bus, PacketEvent{Protocol: "modbus", Info: "read", Payload: []byte{0x01, 0x02}})

	data, err := capr.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	if !bytes.Contains(data, []byte("modbus")) {
		t.Fatalf("expected exported JSON to contain protocol, got %s", data)
	}
}

func TestCapturerExportPCAP(t *testing.T) {
	bus := NewBus()
	capr := NewCapturer(bus, 10)
	capr.Start()
	defer capr.Stop()

	publishAndWait(t, bus, PacketEvent{
		Protocol: "modbus",
		SrcAddr:  "127.0.0.1",
		DstAddr:  "127.0.0.1",
		SrcPort:  5020,
		DstPort:  44000,
		Payload:  []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x03, 0x00, 0x00, 0x00, 0x01},
	})

	var buf bytes.Buffer
	if err := capr.ExportPCAP(&buf); err != nil {
		t.Fatalf("ExportPCAP: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected non-empty pcap output")
	}
}
