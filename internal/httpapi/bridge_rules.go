package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ioprotolab/simhub/internal/bridge"
)

// handleBridgeRules lists the bridge engine's mappings (GET) or replaces
// the set wholesale (PUT).
func (s *Server) handleBridgeRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.ctx.Bridge.Mappings())
	case http.MethodPut, http.MethodPost:
		var mappings []*bridge.Mapping
		if err := decodeJSON(r, &mappings); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.ctx.Bridge.SetMappings(mappings)
		writeJSON(w, http.StatusOK, s.ctx.Bridge.Mappings())
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// handleBridgeRuleByName reads or deletes one mapping by name.
func (s *Server) handleBridgeRuleByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/bridge/rules/")

	mappings := s.ctx.Bridge.Mappings()
	switch r.Method {
	case http.MethodGet:
		for _, m := range mappings {
			if m.Name == name {
				writeJSON(w, http.StatusOK, m)
				return
			}
		}
		writeError(w, http.StatusNotFound, fmt.Errorf("bridge mapping %q not found", name))
	case http.MethodDelete:
		kept := mappings[:0:0]
		found := false
		for _, m := range mappings {
			if m.Name == name {
				found = true
				continue
			}
			kept = append(kept, m)
		}
		if !found {
			writeError(w, http.StatusNotFound, fmt.Errorf("bridge mapping %q not found", name))
			return
		}
		s.ctx.Bridge.SetMappings(kept)
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
