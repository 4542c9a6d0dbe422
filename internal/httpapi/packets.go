package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// handlePackets lists the current capture buffer, newest last, honoring
// an optional ?limit= query parameter.
func (s *Server) handlePackets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	packets := s.ctx.Capturer.Packets()
	limit := len(packets)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}
	start := len(packets) - limit

	out := make([]map[string]interface{}, 0, limit)
	for _, p := range packets[start:] {
		view := packetEventView(p.PacketEvent)
		view["decoded"] = p.Decoded()
		out = append(out, view)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePacketsClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	s.ctx.Capturer.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handlePacketByID resolves /api/packets/<seq> for a single packet lookup,
// or /api/packets/export for the full JSON export.
func (s *Server) handlePacketByID(w http.ResponseWriter, r *http.Request) {
	tail := strings.TrimPrefix(r.URL.Path, "/api/packets/")
	if tail == "export" {
		data, err := s.ctx.Capturer.ExportJSON()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="packets.json"`)
		_, _ = w.Write(data)
		return
	}

	seq, err := strconv.ParseUint(tail, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid packet seq %q", tail))
		return
	}
	for _, p := range s.ctx.Capturer.Packets() {
		if p.Seq == seq {
			view := packetEventView(p.PacketEvent)
			view["decoded"] = p.Decoded()
			writeJSON(w, http.StatusOK, view)
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Errorf("packet %d not found", seq))
}
