package bacnet

import "sync"

// ObjectType mirrors the BACnet standard object types this simulator
// exposes.
type ObjectType uint16

const (
	ObjectAnalogInput  ObjectType = 0
	ObjectAnalogOutput ObjectType = 1
	ObjectAnalogValue  ObjectType = 2
	ObjectBinaryInput  ObjectType = 3
	ObjectBinaryOutput ObjectType = 4
	ObjectBinaryValue  ObjectType = 5
	ObjectDevice       ObjectType = 8
)

// Object is one point in a device's object table.
type Object struct {
	Instance     uint32
	Type         ObjectType
	Name         string
	PresentValue interface{} // float64 for analog points, uint32 (0/1) for binary points
	Min          float64
	Max          float64
	Resolution   float64
}

// Device is one simulated BACnet device: its identity plus object table,
// guarded by a mutex shared by request dispatch and the data simulator.
type Device struct {
	mu       sync.Mutex
	DeviceID uint32
	Name     string
	VendorID uint32
	Objects  map[uint32]*Object
}

// NewDevice builds a device preloaded with a default object set: 4
// analog-input temperature sensors, 2 analog-output heaters, 8
// binary-input switches.
func NewDevice(deviceID uint32, name string) *Device {
	d := &Device{DeviceID: deviceID, Name: name, VendorID: 999, Objects: make(map[uint32]*Object)}

	d.Objects[deviceID] = &Object{Instance: deviceID, Type: ObjectDevice, Name: name, PresentValue: uint32(deviceID)}

	for i := 0; i < 4; i++ {
		inst := uint32(1000 + i)
		d.Objects[inst] = &Object{
			Instance: inst, Type: ObjectAnalogInput, Name: sensorName("Temperature", i),
			PresentValue: 20.0, Min: -40.0, Max: 125.0, Resolution: 0.1,
		}
	}
	for i := 0; i < 2; i++ {
		inst := uint32(2000 + i)
		d.Objects[inst] = &Object{
			Instance: inst, Type: ObjectAnalogOutput, Name: sensorName("Heater", i),
			PresentValue: 50.0, Min: 0.0, Max: 100.0, Resolution: 1.0,
		}
	}
	for i := 0; i < 8; i++ {
		inst := uint32(3000 + i)
		d.Objects[inst] = &Object{Instance: inst, Type: ObjectBinaryInput, Name: sensorName("Switch", i), PresentValue: uint32(0)}
	}
	return d
}

func sensorName(prefix string, i int) string {
	digits := "123456789"
	if i < len(digits) {
		return prefix + "_" + string(digits[i])
	}
	return prefix
}

func (d *Device) Object(instance uint32) (*Object, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, ok := d.Objects[instance]
	return o, ok
}

func (d *Device) SetPresentValue(instance uint32, v interface{}) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, ok := d.Objects[instance]
	if !ok {
		return false
	}
	o.PresentValue = v
	return true
}

// WalkAnalogObjects returns every analog-typed object, for the data
// simulator's per-tick walk.
func (d *Device) WalkAnalogObjects() []*Object {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Object
	for _, o := range d.Objects {
		switch o.Type {
		case ObjectAnalogInput, ObjectAnalogOutput, ObjectAnalogValue:
			out = append(out, o)
		}
	}
	return out
}

// binaryInputObjects returns every binary-input object, for the data
// simulator's per-tick flip.
func (d *Device) binaryInputObjects() []*Object {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Object
	for _, o := range d.Objects {
		if o.Type == ObjectBinaryInput {
			out = append(out, o)
		}
	}
	return out
}

// Table owns every simulated device, keyed by device id.
type Table struct {
	mu      sync.Mutex
	devices map[uint32]*Device
}

func NewTable() *Table {
	return &Table{devices: make(map[uint32]*Device)}
}

func (t *Table) Add(d *Device) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.devices[d.DeviceID] = d
}

func (t *Table) Get(deviceID uint32) (*Device, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.devices[deviceID]
	return d, ok
}

// Devices returns a snapshot of every registered device.
func (t *Table) Devices() []*Device {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Device, 0, len(t.devices))
	for _, d := range t.devices {
		out = append(out, d)
	}
	return out
}

// First returns an arbitrary registered device — this simulator's default
// Who-Is/I-Am responder only ever speaks for one local device, matching
// original_source's single-device BACnetIPRouter.
func (t *Table) First() (*Device, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, d := range t.devices {
		return d, true
	}
	return nil, false
}
