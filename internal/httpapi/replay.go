package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/ioprotolab/simhub/internal/replay"
)

// replayState holds the single active replay the REST surface controls:
// one replay pipeline at a time (load/start/pause/resume/stop), not a
// named-session set like recording.
type replayState struct {
	mu     sync.Mutex
	player *replay.Replayer
	cancel context.CancelFunc
}

// handleReplay dispatches by ?action= query parameter (load, start, pause,
// resume, stop, progress) since replay has no sub-resource identity of
// its own.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	if action == "" {
		action = "progress"
	}

	switch action {
	case "load":
		s.replayLoad(w, r)
	case "start":
		s.replayStart(w, r)
	case "pause":
		s.replay.mu.Lock()
		if s.replay.player != nil {
			s.replay.player.Pause()
		}
		s.replay.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
	case "resume":
		s.replay.mu.Lock()
		if s.replay.player != nil {
			s.replay.player.Resume()
		}
		s.replay.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
	case "stop":
		s.replay.mu.Lock()
		if s.replay.cancel != nil {
			s.replay.cancel()
		}
		s.replay.player = nil
		s.replay.cancel = nil
		s.replay.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
	case "progress":
		s.replay.mu.Lock()
		player := s.replay.player
		s.replay.mu.Unlock()
		if player == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{"loaded": false})
			return
		}
		current, total, percent := player.Progress()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"loaded": true, "current": current, "total": total, "percent": percent,
		})
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown replay action %q", action))
	}
}

func (s *Server) replayLoad(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Mode      string `json:"mode"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess, ok := s.ctx.Recorder.Get(req.SessionID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("recording %q not found", req.SessionID))
		return
	}

	mode := replay.Mode(req.Mode)
	if mode == "" {
		mode = replay.ModeNormal
	}

	s.replay.mu.Lock()
	s.replay.player = replay.NewReplayer(s.ctx.PacketBus, sess.Packets(), mode)
	s.replay.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded"})
}

func (s *Server) replayStart(w http.ResponseWriter, r *http.Request) {
	s.replay.mu.Lock()
	player := s.replay.player
	s.replay.mu.Unlock()
	if player == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("no replay loaded"))
		return
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.replay.mu.Lock()
	s.replay.cancel = cancel
	s.replay.mu.Unlock()

	go func() {
		if err := player.Run(runCtx); err != nil {
			s.log.Warn("replay run ended", zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}
