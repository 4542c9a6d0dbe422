package modbus

import "sync"

// Device is one simulated Modbus unit's register/coil banks, guarded by
// a single per-device mutex shared by client dispatch and the data
// simulator tick.
type Device struct {
	mu               sync.Mutex
	coils            map[uint16]bool
	discreteInputs   map[uint16]bool
	holdingRegisters map[uint16]uint16
	inputRegisters   map[uint16]uint16
}

func NewDevice() *Device {
	return &Device{
		coils:            make(map[uint16]bool),
		discreteInputs:   make(map[uint16]bool),
		holdingRegisters: make(map[uint16]uint16),
		inputRegisters:   make(map[uint16]uint16),
	}
}

func (d *Device) ReadCoils(addr, qty uint16) []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return readBoolBank(d.coils, addr, qty)
}

func (d *Device) ReadDiscreteInputs(addr, qty uint16) []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return readBoolBank(d.discreteInputs, addr, qty)
}

func (d *Device) ReadHoldingRegisters(addr, qty uint16) []uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return readRegBank(d.holdingRegisters, addr, qty)
}

func (d *Device) ReadInputRegisters(addr, qty uint16) []uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return readRegBank(d.inputRegisters, addr, qty)
}

func (d *Device) WriteCoil(addr uint16, v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.coils[addr] = v
}

func (d *Device) WriteHoldingRegister(addr uint16, v uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.holdingRegisters[addr] = v
}

func (d *Device) WriteCoils(addr uint16, values []bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, v := range values {
		d.coils[addr+uint16(i)] = v
	}
}

func (d *Device) WriteHoldingRegisters(addr uint16, values []uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, v := range values {
		d.holdingRegisters[addr+uint16(i)] = v
	}
}

// SetInputRegister lets the data simulator push a periodically-evolved
// reading into the read-only input-register bank.
func (d *Device) SetInputRegister(addr uint16, v uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inputRegisters[addr] = v
}

func readBoolBank(bank map[uint16]bool, addr, qty uint16) []bool {
	out := make([]bool, qty)
	for i := uint16(0); i < qty; i++ {
		out[i] = bank[addr+i]
	}
	return out
}

func readRegBank(bank map[uint16]uint16, addr, qty uint16) []uint16 {
	out := make([]uint16, qty)
	for i := uint16(0); i < qty; i++ {
		out[i] = bank[addr+i]
	}
	return out
}

// Table owns every simulated unit, keyed by unit id (0-247).
type Table struct {
	mu      sync.Mutex
	devices map[byte]*Device
}

func NewTable() *Table {
	return &Table{devices: make(map[byte]*Device)}
}

// Ensure returns the Device for unitID, creating it on first access so a
// configured device fleet need not pre-register every unit.
func (t *Table) Ensure(unitID byte) *Device {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.devices[unitID]
	if !ok {
		d = NewDevice()
		t.devices[unitID] = d
	}
	return d
}

// Get returns the Device for unitID without creating it.
func (t *Table) Get(unitID byte) (*Device, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.devices[unitID]
	return d, ok
}

// Units returns every currently-registered unit id.
func (t *Table) Units() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]byte, 0, len(t.devices))
	for id := range t.devices {
		out = append(out, id)
	}
	return out
}
