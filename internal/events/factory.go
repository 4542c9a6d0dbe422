package events

import (
	"fmt"

	"github.com/ioprotolab/simhub/internal/config"
)

// New builds the configured Bus backend, mirroring chenquan-lighthouse's
// store-selector pattern (one switch over a config string picking a
// concrete persistence implementation behind a shared interface).
func New(cfg config.EventsConfig) (Bus, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryBus(cfg.HistorySize), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("events: redis backend requires redis_addr")
		}
		return NewRedisBus(cfg.RedisAddr, cfg.HistorySize), nil
	case "zmq":
		if cfg.ZMQAddr == "" {
			return nil, fmt.Errorf("events: zmq backend requires zmq_addr")
		}
		return NewZMQBus(cfg.ZMQAddr, cfg.HistorySize)
	default:
		return nil, fmt.Errorf("events: unknown backend %q", cfg.Backend)
	}
}
