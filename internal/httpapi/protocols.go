package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
)

// protocolStatus reports one simulator's configured port and its
// per-protocol enabled flag. Listener lifetime is tied to the process
// (internal/app.Context.Start/Stop), and start/stop here only set that
// flag: the socket stays bound and the periodic data simulators in
// internal/app keep running, since none of them reads the flag.
type protocolStatus struct {
	Name    string `json:"name"`
	Port    int    `json:"port"`
	Running bool   `json:"running"`
}

func (s *Server) handleProtocols(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	cfg := s.ctx.Config.Server
	out := []protocolStatus{
		{Name: "modbus", Port: cfg.Modbus.Port, Running: s.simEnabled("modbus")},
		{Name: "mqtt", Port: cfg.MQTT.Port, Running: s.simEnabled("mqtt")},
		{Name: "coap", Port: cfg.CoAP.Port, Running: s.simEnabled("coap")},
		{Name: "bacnet", Port: cfg.BACnet.Port, Running: s.simEnabled("bacnet")},
		{Name: "opcua", Port: cfg.OPCUA.Port, Running: true},
		{Name: "raw_tcp", Port: cfg.RawTCP.Port, Running: true},
	}
	writeJSON(w, http.StatusOK, out)
}

// handleProtocolDetail serves /api/protocols/<name>/status|start|stop.
func (s *Server) handleProtocolDetail(w http.ResponseWriter, r *http.Request) {
	tail := strings.TrimPrefix(r.URL.Path, "/api/protocols/")
	parts := strings.SplitN(tail, "/", 2)
	if len(parts) != 2 {
		writeError(w, http.StatusNotFound, fmt.Errorf("expected /api/protocols/<name>/<action>"))
		return
	}
	name, action := parts[0], parts[1]

	switch action {
	case "status":
		writeJSON(w, http.StatusOK, protocolStatus{Name: name, Running: s.simEnabled(name)})
	case "start":
		s.setSimEnabled(name, true)
		writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
	case "stop":
		s.setSimEnabled(name, false)
		writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown action %q", action))
	}
}

// simEnabled reports the per-protocol flag that start/stop set.
// A simple atomic-bool-per-name map would race on insert, so this uses
// the Server's own mutex-free approach: a fixed small set of protocol
// names backed by atomic.Bool values set up once at construction.
func (s *Server) simEnabled(name string) bool {
	b, ok := s.simFlags[name]
	if !ok {
		return true
	}
	return b.Load()
}

func (s *Server) setSimEnabled(name string, on bool) {
	b, ok := s.simFlags[name]
	if !ok {
		return
	}
	b.Store(on)
}

func newSimFlags() map[string]*atomic.Bool {
	flags := make(map[string]*atomic.Bool)
	for _, name := range []string{"modbus", "mqtt", "coap", "bacnet"} {
		b := &atomic.Bool{}
		b.Store(true)
		flags[name] = b
	}
	return flags
}

// handleSimulation reports the process-wide simulation tick interval,
// alongside each protocol's individual enabled flag.
func (s *Server) handleSimulation(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		protocols := make(map[string]bool, len(s.simFlags))
		for name := range s.simFlags {
			protocols[name] = s.simEnabled(name)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"interval_ms": s.ctx.Config.Sim.Interval.Milliseconds(),
			"protocols":   protocols,
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
