package topology

import "testing"

func TestCreateDevicesRespectsMax(t *testing.T) {
	f := NewFleet(5)
	created := f.CreateDevices(10, "sensor")
	if created != 5 {
		t.Fatalf("expected 5 devices created (capped), got %d", created)
	}
	if len(f.Devices()) != 5 {
		t.Fatalf("expected 5 devices tracked, got %d", len(f.Devices()))
	}
}

func TestCreateDevicesUnknownTypeFallsBackToSensor(t *testing.T) {
	f := NewFleet(10)
	f.CreateDevices(1, "drone")
	devices := f.Devices()
	if len(devices) != 1 || devices[0].Type != "sensor" {
		t.Fatalf("expected fallback to sensor template, got %+v", devices)
	}
}

func TestFleetStatsByType(t *testing.T) {
	f := NewFleet(100)
	f.CreateDevices(3, "sensor")
	f.CreateDevices(2, "plc")
	stats := f.Stats()
	if stats.TotalDevices != 5 {
		t.Fatalf("expected 5 total devices, got %d", stats.TotalDevices)
	}
	if stats.ByType["sensor"].Count != 3 || stats.ByType["plc"].Count != 2 {
		t.Fatalf("unexpected per-type counts: %+v", stats.ByType)
	}
}

func TestDeviceLookup(t *testing.T) {
	f := NewFleet(10)
	f.CreateDevices(1, "gateway")
	devices := f.Devices()
	got, ok := f.Device(devices[0].ID)
	if !ok || got.Type != "gateway" {
		t.Fatalf("expected to find device by id, got %+v ok=%v", got, ok)
	}
	if _, ok := f.Device("missing"); ok {
		t.Fatal("expected lookup miss for unknown id")
	}
}
