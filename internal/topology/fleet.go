package topology

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// DeviceTemplate describes one synthetic device archetype the fleet
// generator can stamp out in bulk, mirroring the original LoadGenerator's
// per-type templates.
type DeviceTemplate struct {
	Protocols []string
	DataRate  float64 // messages per second
	DataSize  int     // bytes, nominal
}

// DefaultTemplates mirrors the original's sensor/actuator/plc/gateway
// template table.
func DefaultTemplates() map[string]DeviceTemplate {
	return map[string]DeviceTemplate{
		"sensor":   {Protocols: []string{"mqtt", "coap"}, DataRate: 1.0, DataSize: 100},
		"actuator": {Protocols: []string{"mqtt", "tcp"}, DataRate: 0.1, DataSize: 50},
		"plc":      {Protocols: []string{"modbus", "opcua"}, DataRate: 10.0, DataSize: 500},
		"gateway":  {Protocols: []string{"mqtt", "tcp", "bacnet"}, DataRate: 100.0, DataSize: 1000},
	}
}

// Device is one synthetic fleet member.
type Device struct {
	ID               string
	Type             string
	Address          string
	Protocols        []string
	DataRate         float64
	DataSize         int
	MessagesSent     uint64
	MessagesReceived uint64
	BytesSent        uint64
	BytesReceived    uint64
	Status           string
}

// FleetStats summarizes the current fleet, mirroring the original's
// get_stats().
type FleetStats struct {
	TotalDevices          int
	OnlineDevices         int
	TotalMessagesSent     uint64
	TotalBytesSent        uint64
	AvgMessagesPerDevice  float64
	ByType                map[string]TypeStats
}

// TypeStats is the per-template breakdown inside FleetStats.
type TypeStats struct {
	Count    int
	Messages uint64
}

// Fleet generates and tracks a bulk population of synthetic devices,
// bounded by MaxDevices, and drives a periodic synthetic traffic sampler
// the way the original's LoadGenerator._generate_load did.
type Fleet struct {
	MaxDevices int

	mu        sync.Mutex
	templates map[string]DeviceTemplate
	devices   map[string]*Device
	rng       *rand.Rand

	stop chan struct{}
}

func NewFleet(maxDevices int) *Fleet {
	if maxDevices <= 0 {
		maxDevices = 1000
	}
	return &Fleet{
		MaxDevices: maxDevices,
		templates:  DefaultTemplates(),
		devices:    make(map[string]*Device),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateDevices stamps out up to count devices of deviceType, capped so the
// fleet never exceeds MaxDevices. Returns the number actually created.
func (f *Fleet) CreateDevices(count int, deviceType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmpl, ok := f.templates[deviceType]
	if !ok {
		tmpl = f.templates["sensor"]
		deviceType = "sensor"
	}

	room := f.MaxDevices - len(f.devices)
	if count > room {
		count = room
	}
	if count <= 0 {
		return 0
	}

	start := len(f.devices)
	for i := 0; i < count; i++ {
		n := start + i
		id := fmt.Sprintf("device-%s-%04d", shortType(deviceType), n+1)
		f.devices[id] = &Device{
			ID:        id,
			Type:      deviceType,
			Address:   fmt.Sprintf("192.168.%d.%d", n/256, n%256),
			Protocols: tmpl.Protocols,
			DataRate:  tmpl.DataRate,
			DataSize:  tmpl.DataSize,
			Status:    "online",
		}
	}
	return count
}

func shortType(t string) string {
	if len(t) > 3 {
		return t[:3]
	}
	return t
}

// Start launches a background goroutine that samples up to 100 devices per
// interval and advances their messages/bytes counters probabilistically
// against each device's DataRate, matching the original's _generate_load.
func (f *Fleet) Start(interval time.Duration) {
	f.mu.Lock()
	if f.stop != nil {
		f.mu.Unlock()
		return
	}
	f.stop = make(chan struct{})
	stop := f.stop
	f.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				f.tick(interval)
			}
		}
	}()
}

func (f *Fleet) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stop != nil {
		close(f.stop)
		f.stop = nil
	}
}

func (f *Fleet) tick(interval time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(f.devices))
	for id := range f.devices {
		ids = append(ids, id)
	}
	sample := len(ids)
	if sample > 100 {
		sample = 100
	}
	f.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	for _, id := range ids[:sample] {
		d := f.devices[id]
		if f.rng.Float64() >= d.DataRate*interval.Seconds() {
			continue
		}
		half, double := d.DataSize/2, d.DataSize*2
		size := half + f.rng.Intn(double-half+1)
		d.MessagesSent++
		d.BytesSent += uint64(size)
	}
}

// Stats computes fleet-wide summary statistics.
func (f *Fleet) Stats() FleetStats {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := FleetStats{ByType: make(map[string]TypeStats, len(f.templates))}
	for t := range f.templates {
		stats.ByType[t] = TypeStats{}
	}

	var totalSent, totalBytes uint64
	for _, d := range f.devices {
		totalSent += d.MessagesSent
		totalBytes += d.BytesSent
		if d.Status == "online" {
			stats.OnlineDevices++
		}
		ts := stats.ByType[d.Type]
		ts.Count++
		ts.Messages += d.MessagesSent
		stats.ByType[d.Type] = ts
	}

	stats.TotalDevices = len(f.devices)
	stats.TotalMessagesSent = totalSent
	stats.TotalBytesSent = totalBytes
	if len(f.devices) > 0 {
		stats.AvgMessagesPerDevice = float64(totalSent) / float64(len(f.devices))
	}
	return stats
}

// Device returns one device by id.
func (f *Fleet) Device(id string) (Device, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[id]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// Devices returns a snapshot of every device.
func (f *Fleet) Devices() []Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Device, 0, len(f.devices))
	for _, d := range f.devices {
		out = append(out, *d)
	}
	return out
}
