package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ioprotolab/simhub/internal/rules"
)

// handleAutomationRules lists the rules engine's rule set (GET) or
// replaces it wholesale (PUT).
func (s *Server) handleAutomationRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.ctx.Rules.Rules())
	case http.MethodPut, http.MethodPost:
		var ruleset []*rules.Rule
		if err := decodeJSON(r, &ruleset); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.ctx.Rules.SetRules(ruleset)
		writeJSON(w, http.StatusOK, s.ctx.Rules.Rules())
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// handleAutomationRuleByID reads or deletes one rule by id.
func (s *Server) handleAutomationRuleByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/automation/rules/")

	ruleset := s.ctx.Rules.Rules()
	switch r.Method {
	case http.MethodGet:
		for _, rule := range ruleset {
			if rule.ID == id {
				writeJSON(w, http.StatusOK, rule)
				return
			}
		}
		writeError(w, http.StatusNotFound, fmt.Errorf("rule %q not found", id))
	case http.MethodDelete:
		kept := ruleset[:0:0]
		found := false
		for _, rule := range ruleset {
			if rule.ID == id {
				found = true
				continue
			}
			kept = append(kept, rule)
		}
		if !found {
			writeError(w, http.StatusNotFound, fmt.Errorf("rule %q not found", id))
			return
		}
		s.ctx.Rules.SetRules(kept)
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
