package bacnet

import "testing"

func TestNewDeviceDefaultObjectSet(t *testing.T) {
	d := NewDevice(1001, "plant-1")

	if _, ok := d.Object(1001); !ok {
		t.Fatal("expected device object itself to be present")
	}
	for i := uint32(0); i < 4; i++ {
		obj, ok := d.Object(1000 + i)
		if !ok || obj.Type != ObjectAnalogInput {
			t.Fatalf("expected analog-input temperature at %d", 1000+i)
		}
		if obj.PresentValue.(float64) != 20.0 {
			t.Fatalf("expected default temperature 20.0, got %v", obj.PresentValue)
		}
	}
	for i := uint32(0); i < 2; i++ {
		obj, ok := d.Object(2000 + i)
		if !ok || obj.Type != ObjectAnalogOutput {
			t.Fatalf("expected analog-output heater at %d", 2000+i)
		}
	}
	for i := uint32(0); i < 8; i++ {
		obj, ok := d.Object(3000 + i)
		if !ok || obj.Type != ObjectBinaryInput {
			t.Fatalf("expected binary-input switch at %d", 3000+i)
		}
	}
	if _, ok := d.Object(3008); ok {
		t.Fatal("expected only 8 binary-input switches")
	}
}

func TestDeviceSetPresentValueUnknownInstance(t *testing.T) {
	d := NewDevice(1, "d")
	if d.SetPresentValue(99999, 1.0) {
		t.Fatal("expected SetPresentValue on unknown instance to report false")
	}
}

func TestDeviceSetPresentValueRoundTrip(t *testing.T) {
	d := NewDevice(1, "d")
	if !d.SetPresentValue(1000, 30.5) {
		t.Fatal("expected SetPresentValue to succeed for known instance")
	}
	obj, _ := d.Object(1000)
	if obj.PresentValue.(float64) != 30.5 {
		t.Fatalf("expected updated value 30.5, got %v", obj.PresentValue)
	}
}

func TestDeviceWalkAnalogObjectsExcludesBinary(t *testing.T) {
	d := NewDevice(1, "d")
	analog := d.WalkAnalogObjects()
	if len(analog) != 6 { // 4 temperatures + 2 heaters
		t.Fatalf("expected 6 analog objects, got %d", len(analog))
	}
	for _, o := range analog {
		if o.Type == ObjectBinaryInput {
			t.Fatal("binary-input object leaked into analog walk")
		}
	}
}

func TestTableAddGetDevices(t *testing.T) {
	table := NewTable()
	d := NewDevice(7, "unit-7")
	table.Add(d)

	got, ok := table.Get(7)
	if !ok || got.DeviceID != 7 {
		t.Fatalf("expected to find device 7, got %+v ok=%v", got, ok)
	}
	if len(table.Devices()) != 1 {
		t.Fatalf("expected 1 device, got %d", len(table.Devices()))
	}
}

func TestTableFirstOnEmptyTable(t *testing.T) {
	table := NewTable()
	if _, ok := table.First(); ok {
		t.Fatal("expected First to report false on empty table")
	}
}

func TestTableFirstReturnsRegisteredDevice(t *testing.T) {
	table := NewTable()
	d := NewDevice(42, "only-one")
	table.Add(d)

	got, ok := table.First()
	if !ok || got.DeviceID != 42 {
		t.Fatalf("expected device 42, got %+v ok=%v", got, ok)
	}
}
