package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ioprotolab/simhub/internal/record"
)

type sessionView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at,omitempty"`
	Running   bool      `json:"running"`
	Stats     struct {
		PacketCount   int      `json:"packet_count"`
		ByteCount     int      `json:"byte_count"`
		DurationMS    int64    `json:"duration_ms"`
		PacketsPerSec float64  `json:"packets_per_sec"`
		Protocols     []string `json:"protocols"`
	} `json:"stats"`
}

func toSessionView(sess *record.Session) sessionView {
	stats := sess.Stats(time.Now())
	v := sessionView{
		ID:        sess.ID,
		Name:      sess.Name,
		StartedAt: sess.StartedAt,
		StoppedAt: sess.StoppedAt,
		Running:   sess.StoppedAt.IsZero(),
	}
	v.Stats.PacketCount = stats.PacketCount
	v.Stats.ByteCount = stats.ByteCount
	v.Stats.DurationMS = stats.Duration.Milliseconds()
	v.Stats.PacketsPerSec = stats.PacketsPerSec
	v.Stats.Protocols = stats.Protocols
	return v
}

// handleRecordings lists sessions (GET) or starts a new one (POST).
func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessions := s.ctx.Recorder.List()
		out := make([]sessionView, 0, len(sessions))
		for _, sess := range sessions {
			out = append(out, toSessionView(sess))
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		_ = decodeJSON(r, &req)
		sess := s.ctx.Recorder.Start(req.Name)
		writeJSON(w, http.StatusCreated, toSessionView(sess))
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// handleRecordingDetail serves /api/recordings/<id>[/stop|/export].
func (s *Server) handleRecordingDetail(w http.ResponseWriter, r *http.Request) {
	tail := strings.TrimPrefix(r.URL.Path, "/api/recordings/")
	id, action, _ := strings.Cut(tail, "/")

	switch action {
	case "":
		sess, ok := s.ctx.Recorder.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("recording %q not found", id))
			return
		}
		writeJSON(w, http.StatusOK, toSessionView(sess))
	case "stop":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
			return
		}
		stats, ok := s.ctx.Recorder.Stop(id)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("recording %q not found", id))
			return
		}
		writeJSON(w, http.StatusOK, stats)
	case "export":
		sess, ok := s.ctx.Recorder.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("recording %q not found", id))
			return
		}
		writeJSON(w, http.StatusOK, sess.Packets())
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown action %q", action))
	}
}
