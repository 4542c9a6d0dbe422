package app

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ioprotolab/simhub/internal/payload"
	"github.com/ioprotolab/simhub/internal/protocols/bacnet"
	"github.com/ioprotolab/simhub/internal/protocols/coap"
	"github.com/ioprotolab/simhub/internal/protocols/modbus"
	"github.com/ioprotolab/simhub/internal/protocols/mqttproto"
)

// protocolAdapter lets the bridge and rules publishers reach one running
// simulator, mirroring the original engine's register_adapter(protocol,
// adapter) table of per-protocol write targets.
type protocolAdapter interface {
	publish(topic string, body payload.Value) error
}

// mqttAdapter publishes a retained JSON message onto the broker's topic
// tree, the same way internal/protocols/mqttproto's own data simulator
// republishes telemetry.
type mqttAdapter struct {
	broker *mqttproto.Broker
}

func (a mqttAdapter) publish(topic string, body payload.Value) error {
	data, err := json.Marshal(payload.ToAny(body))
	if err != nil {
		return fmt.Errorf("app: mqtt publish encode: %w", err)
	}
	a.broker.Publish(mqttproto.Publish{Topic: topic, Qos: 0, Retain: true, Payload: data})
	return nil
}

// coapAdapter overwrites a resource's representation in place, so the
// next GET (or an active Observe registration) sees the bridged value.
type coapAdapter struct {
	store *coap.Store
}

func (a coapAdapter) publish(topic string, body payload.Value) error {
	data, err := json.Marshal(payload.ToAny(body))
	if err != nil {
		return fmt.Errorf("app: coap publish encode: %w", err)
	}
	a.store.Put(topic, coap.ContentFormatJSON, data)
	return nil
}

// modbusAdapter addresses a unit's holding register bank via a
// "<unitID>/<registerAddr>" topic, both decimal.
type modbusAdapter struct {
	table *modbus.Table
}

func (a modbusAdapter) publish(topic string, body payload.Value) error {
	unitID, addr, err := splitModbusTopic(topic)
	if err != nil {
		return err
	}
	f, ok := body.Float()
	if !ok {
		i, ok := body.Int()
		if !ok {
			return fmt.Errorf("app: modbus publish: %q is not numeric", topic)
		}
		f = float64(i)
	}
	a.table.Ensure(unitID).WriteHoldingRegister(addr, uint16(f))
	return nil
}

func splitModbusTopic(topic string) (byte, uint16, error) {
	parts := strings.SplitN(topic, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("app: modbus publish topic %q must be \"<unitID>/<regAddr>\"", topic)
	}
	unitID, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("app: modbus publish topic %q: bad unit id: %w", topic, err)
	}
	addr, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("app: modbus publish topic %q: bad register addr: %w", topic, err)
	}
	return byte(unitID), uint16(addr), nil
}

// bacnetAdapter addresses an object's present value via a
// "<deviceID>/<objectInstance>" topic, both decimal.
type bacnetAdapter struct {
	table *bacnet.Table
}

func (a bacnetAdapter) publish(topic string, body payload.Value) error {
	deviceID, instance, err := splitBacnetTopic(topic)
	if err != nil {
		return err
	}
	dev, ok := a.table.Get(deviceID)
	if !ok {
		return fmt.Errorf("app: bacnet publish: unknown device %d", deviceID)
	}
	f, ok := body.Float()
	if !ok {
		i, ok := body.Int()
		if !ok {
			return fmt.Errorf("app: bacnet publish: %q is not numeric", topic)
		}
		f = float64(i)
	}
	if !dev.SetPresentValue(instance, f) {
		return fmt.Errorf("app: bacnet publish: unknown object %d on device %d", instance, deviceID)
	}
	return nil
}

func splitBacnetTopic(topic string) (uint32, uint32, error) {
	parts := strings.SplitN(topic, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("app: bacnet publish topic %q must be \"<deviceID>/<objectInstance>\"", topic)
	}
	deviceID, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("app: bacnet publish topic %q: bad device id: %w", topic, err)
	}
	instance, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("app: bacnet publish topic %q: bad object instance: %w", topic, err)
	}
	return uint32(deviceID), uint32(instance), nil
}
