package httpapi

import (
	"fmt"
	"net/http"
)

// metricsView is the periodic/snapshot metrics payload: packet and fault
// counters plus the bridge/rules engines' own per-mapping counters.
type metricsView struct {
	PacketsCaptured int                  `json:"packets_captured"`
	ActiveFaults    int                  `json:"active_faults"`
	FleetStats      interface{}          `json:"fleet_stats"`
	TopologyStats   interface{}          `json:"topology_stats"`
	BridgeMappings  []bridgeMappingStats `json:"bridge_mappings"`
}

type bridgeMappingStats struct {
	Name        string `json:"name"`
	Forwarded   uint64 `json:"forwarded"`
	Transformed uint64 `json:"transformed"`
	Errors      uint64 `json:"errors"`
}

func (s *Server) metricsSnapshot() metricsView {
	mappings := s.ctx.Bridge.Mappings()
	bridgeStats := make([]bridgeMappingStats, 0, len(mappings))
	for _, m := range mappings {
		bridgeStats = append(bridgeStats, bridgeMappingStats{
			Name:        m.Name,
			Forwarded:   m.Forwarded,
			Transformed: m.Transformed,
			Errors:      m.Errors,
		})
	}

	return metricsView{
		PacketsCaptured: len(s.ctx.Capturer.Packets()),
		ActiveFaults:    len(s.ctx.Faults.List()),
		FleetStats:      s.ctx.Fleet.Stats(),
		TopologyStats:   s.ctx.Topology.Stats(),
		BridgeMappings:  bridgeStats,
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	writeJSON(w, http.StatusOK, s.metricsSnapshot())
}
