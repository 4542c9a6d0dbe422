package modbus

import "testing"

func TestTableEnsureCreatesLazily(t *testing.T) {
	table := NewTable()
	if _, ok := table.Get(1); ok {
		t.Fatal("expected no device before Ensure")
	}
	d := table.Ensure(1)
	if d == nil {
		t.Fatal("expected non-nil device")
	}
	again, ok := table.Get(1)
	if !ok || again != d {
		t.Fatal("expected Get to return the same device created by Ensure")
	}
}

func TestTableUnits(t *testing.T) {
	table := NewTable()
	table.Ensure(1)
	table.Ensure(5)
	units := table.Units()
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
}

func TestDeviceCoilsReadWrite(t *testing.T) {
	d := NewDevice()
	d.WriteCoils(0, []bool{true, false, true})
	got := d.ReadCoils(0, 3)
	want := []bool{true, false, true}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("coil %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	// unset coils read as false
	if d.ReadCoils(10, 1)[0] {
		t.Fatal("expected unset coil to read false")
	}
}

func TestDeviceSingleCoilWrite(t *testing.T) {
	d := NewDevice()
	d.WriteCoil(3, true)
	if !d.ReadCoils(3, 1)[0] {
		t.Fatal("expected coil 3 set")
	}
}

func TestDeviceDiscreteInputsDefaultFalse(t *testing.T) {
	d := NewDevice()
	got := d.ReadDiscreteInputs(0, 4)
	for i, v := range got {
		if v {
			t.Fatalf("discrete input %d: expected false by default", i)
		}
	}
}

func TestDeviceHoldingRegistersReadWrite(t *testing.T) {
	d := NewDevice()
	d.WriteHoldingRegisters(100, []uint16{10, 20, 30})
	got := d.ReadHoldingRegisters(100, 3)
	want := []uint16{10, 20, 30}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("register %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestDeviceSingleHoldingRegisterWrite(t *testing.T) {
	d := NewDevice()
	d.WriteHoldingRegister(7, 999)
	if got := d.ReadHoldingRegisters(7, 1); got[0] != 999 {
		t.Fatalf("expected 999, got %d", got[0])
	}
}

func TestDeviceSetInputRegister(t *testing.T) {
	d := NewDevice()
	d.SetInputRegister(2, 555)
	if got := d.ReadInputRegisters(2, 1); got[0] != 555 {
		t.Fatalf("expected 555, got %d", got[0])
	}
}
