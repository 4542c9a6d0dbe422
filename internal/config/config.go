// Package config loads simhub's process configuration: per-protocol bind
// addresses and ports, logging, the event bus backend, and capture/replay
// tuning. Config is JSON-first, with a custom Duration wrapper so
// durations can be written as human-readable strings, extended with
// viper-driven environment overrides and struct-tag validation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `json:"server" mapstructure:"server"`
	HTTP    HTTPConfig    `json:"http" mapstructure:"http"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	Capture CaptureConfig `json:"capture" mapstructure:"capture"`
	Events  EventsConfig  `json:"events" mapstructure:"events"`
	Bridge  BridgeConfig  `json:"bridge" mapstructure:"bridge"`
	Rules   RulesConfig   `json:"rules" mapstructure:"rules"`
	Sim     SimConfig     `json:"sim" mapstructure:"sim"`
}

type ServerConfig struct {
	Bind   string      `json:"bind" mapstructure:"bind"`
	Modbus ProtoConfig `json:"modbus" mapstructure:"modbus"`
	MQTT   MQTTConfig  `json:"mqtt" mapstructure:"mqtt"`
	OPCUA  ProtoConfig `json:"opcua" mapstructure:"opcua"`
	BACnet ProtoConfig `json:"bacnet" mapstructure:"bacnet"`
	CoAP   ProtoConfig `json:"coap" mapstructure:"coap"`
	RawTCP ProtoConfig `json:"raw_tcp" mapstructure:"raw_tcp"`
}

// HTTPConfig binds the REST + WebSocket control-plane API.
type HTTPConfig struct {
	Bind string `json:"bind" mapstructure:"bind"`
	Port int    `json:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
}

type ProtoConfig struct {
	Port int `json:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
}

type MQTTConfig struct {
	Port   int  `json:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	Retain bool `json:"retain" mapstructure:"retain"`
}

type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	FilePath   string `json:"file_path" mapstructure:"file_path"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
}

type CaptureConfig struct {
	RingSize int `json:"ring_size" mapstructure:"ring_size" validate:"gte=1"`
}

type EventsConfig struct {
	Backend     string `json:"backend" mapstructure:"backend" validate:"oneof=memory redis zmq"`
	HistorySize int    `json:"history_size" mapstructure:"history_size" validate:"gte=1"`
	RedisAddr   string `json:"redis_addr" mapstructure:"redis_addr"`
	ZMQAddr     string `json:"zmq_addr" mapstructure:"zmq_addr"`
}

type BridgeConfig struct {
	MappingFile string `json:"mapping_file" mapstructure:"mapping_file"`
}

type RulesConfig struct {
	RuleFile string `json:"rule_file" mapstructure:"rule_file"`
}

// SimConfig tunes the per-protocol periodic data-simulator tick.
type SimConfig struct {
	Interval Duration `json:"interval" mapstructure:"interval"`
}

// Duration wraps time.Duration so config files can use either a "1s"-style
// string or a raw nanosecond integer.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			d.Duration = 0
			return nil
		}
		dur, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		d.Duration = dur
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	d.Duration = time.Duration(n)
	return nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Bind:   "0.0.0.0",
			Modbus: ProtoConfig{Port: 502},
			MQTT:   MQTTConfig{Port: 1883},
			OPCUA:  ProtoConfig{Port: 4840},
			BACnet: ProtoConfig{Port: 47808},
			CoAP:   ProtoConfig{Port: 5683},
			RawTCP: ProtoConfig{Port: 8080},
		},
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Capture: CaptureConfig{
			RingSize: 10000,
		},
		Events: EventsConfig{
			Backend:     "memory",
			HistorySize: 1000,
		},
		Sim: SimConfig{
			Interval: Duration{time.Second},
		},
	}
}

// Load reads a JSON or YAML config file (selected by extension) layered
// over Default(), then applies SIMHUB_*-prefixed environment overrides via
// viper, and finally validates the result. A bad config file surfaces as a
// single error with no partial load.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := decodeInto(path, data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigType(viperType(path))
	v.SetEnvPrefix("SIMHUB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.ReadConfig(strings.NewReader(string(data))); err == nil {
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("config: env overlay: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}

	return cfg, nil
}

func decodeInto(path string, data []byte, cfg *Config) error {
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return yaml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

func viperType(path string) string {
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return "yaml"
	}
	return "json"
}

var validate = validator.New()

// Validate checks struct-tag constraints (port ranges, log levels, etc).
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}
