// Package app wires every subsystem into one explicit application object:
// a Context struct that owns each subsystem's documented lifecycle instead
// of relying on package-level globals. It is the one place that knows
// about every protocol server, the packet/event buses, the bridge and
// rules engines, and background supervision — an errgroup-supervised set
// of subsystems hung off a struct instead of a flat sequence of
// go func(){...}() calls.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ioprotolab/simhub/internal/bridge"
	"github.com/ioprotolab/simhub/internal/capture"
	"github.com/ioprotolab/simhub/internal/config"
	"github.com/ioprotolab/simhub/internal/events"
	"github.com/ioprotolab/simhub/internal/fault"
	"github.com/ioprotolab/simhub/internal/logging"
	"github.com/ioprotolab/simhub/internal/protocols/bacnet"
	"github.com/ioprotolab/simhub/internal/protocols/coap"
	"github.com/ioprotolab/simhub/internal/protocols/modbus"
	"github.com/ioprotolab/simhub/internal/protocols/mqttproto"
	"github.com/ioprotolab/simhub/internal/protocols/opcua"
	"github.com/ioprotolab/simhub/internal/protocols/rawtcp"
	"github.com/ioprotolab/simhub/internal/record"
	"github.com/ioprotolab/simhub/internal/rules"
	"github.com/ioprotolab/simhub/internal/topology"
)

// Context holds every subsystem and its wiring for one simhub process.
// Every field is safe for concurrent use by background tasks and (in a
// full build) the internal/httpapi collaborator.
type Context struct {
	Config *config.Config
	Log    *zap.Logger

	PacketBus *capture.Bus
	Capturer  *capture.Capturer
	EventBus  events.Bus
	Faults    *fault.Registry
	Recorder  *record.Recorder
	Router    *Router

	Bridge *bridge.Engine
	Rules  *rules.Engine

	ModbusTable  *modbus.Table
	ModbusServer *modbus.Server

	MQTTBroker *mqttproto.Broker
	MQTTServer *mqttproto.Server

	CoAPStore  *coap.Store
	CoAPServer *coap.Server

	BACnetTable  *bacnet.Table
	BACnetServer *bacnet.Server

	OPCUAServer *opcua.Server

	RawTCPServer *rawtcp.Server

	Topology *topology.Graph
	Fleet    *topology.Fleet

	simRegs      []*modbus.SimulatedRegister
	simTopics    []*mqttproto.SimulatedTopic
	simResources []*coap.SimulatedResource

	cancel context.CancelFunc
	group  *errgroup.Group
}

// New builds every subsystem from cfg but starts nothing — call Start to
// bring the process up. Building eagerly (rather than lazily on first
// Start) lets a caller (the HTTP collaborator, tests) reach e.g.
// ctx.ModbusTable before any listener is bound.
func New(cfg *config.Config) (*Context, error) {
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("app: build logger: %w", err)
	}

	eventBus, err := events.New(cfg.Events)
	if err != nil {
		return nil, fmt.Errorf("app: build event bus: %w", err)
	}

	bus := capture.NewBus()
	capturer := capture.NewCapturer(bus, cfg.Capture.RingSize)
	registerDecoders(capturer)

	registry := fault.NewRegistry()
	router := newRouter()

	c := &Context{
		Config:    cfg,
		Log:       log,
		PacketBus: bus,
		Capturer:  capturer,
		EventBus:  eventBus,
		Faults:    registry,
		Recorder:  record.NewRecorder(bus),
		Router:    router,
		Topology:  topology.NewGraph(),
		Fleet:     topology.NewFleet(0),
	}

	c.Bridge = bridge.NewEngine(router)
	rulesLog := logging.Module(log, "rules")
	c.Rules = rules.NewEngine(router, alertSink{log: rulesLog, bus: eventBus}, rules.NewHTTPWebhook(), eventBus, rulesLog)

	if cfg.Bridge.MappingFile != "" {
		mappings, err := bridge.LoadMappingFile(cfg.Bridge.MappingFile)
		if err != nil {
			return nil, fmt.Errorf("app: load bridge mapping file: %w", err)
		}
		c.Bridge.SetMappings(mappings)
	}
	if cfg.Rules.RuleFile != "" {
		ruleset, err := rules.LoadRuleFile(cfg.Rules.RuleFile)
		if err != nil {
			return nil, fmt.Errorf("app: load rule file: %w", err)
		}
		c.Rules.SetRules(ruleset)
	}

	c.buildModbus(cfg)
	c.buildMQTT(cfg, log)
	c.buildCoAP(cfg, log)
	c.buildBACnet(cfg)
	c.OPCUAServer = opcua.NewServer(cfg.Server.Bind, cfg.Server.OPCUA.Port, bus, registry)
	c.RawTCPServer = rawtcp.NewServer(cfg.Server.Bind, cfg.Server.RawTCP.Port, rawtcp.ModeLine, bus, registry)

	topology.SeedDefaultTopology(c.Topology, nil)

	return c, nil
}

func (c *Context) buildModbus(cfg *config.Config) {
	table := modbus.NewTable()
	unit := table.Ensure(1)
	c.ModbusTable = table
	c.Router.register("modbus", modbusAdapter{table: table})
	c.ModbusServer = modbus.NewServer(cfg.Server.Bind, cfg.Server.Modbus.Port, table, c.PacketBus, c.Faults)

	c.simRegs = []*modbus.SimulatedRegister{
		{Addr: 0, Name: "temperature", Min: -20, Max: 80, Scale: 10},
		{Addr: 1, Name: "pressure", Min: 0, Max: 200, Scale: 10},
		{Addr: 2, Name: "humidity", Min: 0, Max: 100, Scale: 10},
	}
	_ = unit
}

func (c *Context) buildMQTT(cfg *config.Config, log *zap.Logger) {
	broker := mqttproto.NewBroker()
	c.MQTTBroker = broker
	c.Router.register("mqtt", mqttAdapter{broker: broker})
	c.MQTTServer = mqttproto.NewServer(cfg.Server.Bind, cfg.Server.MQTT.Port, broker, c.PacketBus, c.Faults, logging.Module(log, "mqtt"))

	c.simTopics = []*mqttproto.SimulatedTopic{
		{Topic: "sensors/temperature", Name: "temperature", Min: -20, Max: 80, Qos: 0},
		{Topic: "sensors/voltage", Name: "voltage", Min: 0, Max: 250, Qos: 0},
	}
}

func (c *Context) buildCoAP(cfg *config.Config, log *zap.Logger) {
	store := coap.NewStore()
	c.CoAPStore = store
	c.Router.register("coap", coapAdapter{store: store})
	c.CoAPServer = coap.NewServer(cfg.Server.Bind, cfg.Server.CoAP.Port, store, c.PacketBus, c.Faults, logging.Module(log, "coap"))

	c.simResources = []*coap.SimulatedResource{
		{Path: "/temperature", Name: "temperature", Min: -20, Max: 80},
		{Path: "/humidity", Name: "humidity", Min: 0, Max: 100},
	}
}

func (c *Context) buildBACnet(cfg *config.Config) {
	table := bacnet.NewTable()
	dev := bacnet.NewDevice(1001, "simhub-bacnet-device")
	table.Add(dev)
	c.BACnetTable = table
	c.Router.register("bacnet", bacnetAdapter{table: table})
	c.BACnetServer = bacnet.NewServer(cfg.Server.Bind, cfg.Server.BACnet.Port, table, c.PacketBus, c.Faults)
}

// Start starts the packet capturer and brings the protocol listeners and
// their per-server data simulators up under one errgroup. Recording is not
// started here; it begins per session. Start returns once every subsystem has
// been launched; it does not block for their completion (call Wait or
// observe ctx for that).
func (c *Context) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	group, groupCtx := errgroup.WithContext(runCtx)
	c.group = group

	c.Capturer.Start()

	interval := c.Config.Sim.Interval.Duration
	if interval <= 0 {
		interval = time.Second
	}

	group.Go(func() error { return c.ModbusServer.ListenAndServe(groupCtx) })
	group.Go(func() error {
		modbus.RunDataSimulator(groupCtx, mustUnit(c.ModbusTable), c.simRegs, interval)
		return nil
	})

	group.Go(func() error { return c.MQTTServer.ListenAndServe(groupCtx) })
	group.Go(func() error {
		mqttproto.RunDataSimulator(groupCtx, c.MQTTBroker, c.simTopics, interval)
		return nil
	})

	group.Go(func() error { return c.CoAPServer.ListenAndServe(groupCtx) })
	group.Go(func() error {
		coap.RunDataSimulator(groupCtx, c.CoAPServer, c.simResources, interval)
		return nil
	})

	group.Go(func() error { return c.BACnetServer.ListenAndServe(groupCtx) })
	group.Go(func() error {
		if dev, ok := c.BACnetTable.First(); ok {
			bacnet.RunDataSimulator(groupCtx, dev, interval)
		}
		return nil
	})

	group.Go(func() error { return c.OPCUAServer.ListenAndServe(groupCtx) })
	group.Go(func() error { return c.RawTCPServer.ListenAndServe(groupCtx) })

	c.Log.Info("simhub started",
		zap.Int("modbus_port", c.Config.Server.Modbus.Port),
		zap.Int("mqtt_port", c.Config.Server.MQTT.Port),
		zap.Int("coap_port", c.Config.Server.CoAP.Port),
		zap.Int("bacnet_port", c.Config.Server.BACnet.Port),
		zap.Int("opcua_port", c.Config.Server.OPCUA.Port),
		zap.Int("rawtcp_port", c.Config.Server.RawTCP.Port),
	)
	return nil
}

// Wait blocks until every background task in Start's errgroup exits
// (normally only on context cancellation or a listener failure) and
// returns the first non-nil error, matching errgroup.Group.Wait's
// contract of "first error wins."
func (c *Context) Wait() error {
	if c.group == nil {
		return nil
	}
	return c.group.Wait()
}

// Stop signals every background task to exit and waits for them. Every
// background task is expected to observe the cancellation within about a
// second of it firing.
func (c *Context) Stop() error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	c.Capturer.Stop()
	err := c.group.Wait()
	_ = c.EventBus.Close()
	return err
}

func mustUnit(table *modbus.Table) *modbus.Device {
	dev, _ := table.Get(1)
	return dev
}
