package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
)

// handleAlerts lists recent alert events (GET, from the event bus's
// bounded history) or answers a clear request (DELETE). The event bus has
// no clear primitive, so DELETE removes nothing and returns a status
// message saying alerts roll off the bus's bounded history.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 100
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}
		writeJSON(w, http.StatusOK, s.ctx.EventBus.History("alert", limit))
	case http.MethodDelete:
		writeJSON(w, http.StatusOK, map[string]string{"status": "alerts roll off the bus's own history window"})
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
