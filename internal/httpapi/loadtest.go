package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ioprotolab/simhub/internal/loadtest"
	"github.com/ioprotolab/simhub/internal/protocols/modbus"
)

// loadtestState holds the one active load test the REST surface drives,
// mirroring replayState's single-active-resource shape.
type loadtestState struct {
	mu      sync.Mutex
	runner  *loadtest.Runner
	cancel  context.CancelFunc
	result  loadtest.Statistics
	running bool
}

type loadtestRequest struct {
	Protocol     string  `json:"protocol"`
	Schedule     string  `json:"schedule"`
	InitialUsers int     `json:"initial_users"`
	MaxUsers     int     `json:"max_users"`
	RampSeconds  int     `json:"ramp_seconds"`
	DurationSecs int     `json:"duration_seconds"`
	BurstSize    int     `json:"burst_size"`
	FailureRate  float64 `json:"failure_rate"`
}

func (s *Server) handleLoadtest(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.loadtest.mu.Lock()
		running, result := s.loadtest.running, s.loadtest.result
		s.loadtest.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{"running": running, "result": result})
	case http.MethodPost:
		s.loadtestStart(w, r)
	case http.MethodDelete:
		s.loadtest.mu.Lock()
		if s.loadtest.cancel != nil {
			s.loadtest.cancel()
		}
		s.loadtest.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

func (s *Server) loadtestStart(w http.ResponseWriter, r *http.Request) {
	var req loadtestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.MaxUsers <= 0 {
		req.MaxUsers = 10
	}
	if req.DurationSecs <= 0 {
		req.DurationSecs = 30
	}

	s.loadtest.mu.Lock()
	if s.loadtest.running {
		s.loadtest.mu.Unlock()
		writeError(w, http.StatusConflict, fmt.Errorf("a load test is already running"))
		return
	}
	s.loadtest.mu.Unlock()

	runner, err := loadtest.NewRunner(req.MaxUsers, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	plan := loadtest.BuildSchedule(loadtest.ScheduleKind(orDefaultSchedule(req.Schedule)), loadtest.Params{
		InitialUsers: req.InitialUsers,
		MaxUsers:     req.MaxUsers,
		RampDuration: time.Duration(req.RampSeconds) * time.Second,
		TestDuration: time.Duration(req.DurationSecs) * time.Second,
		BurstSize:    req.BurstSize,
		FailureRate:  func() float64 { return req.FailureRate },
	})

	reqFn := s.buildRequestFunc(req.Protocol)

	runCtx, cancel := context.WithCancel(context.Background())
	s.loadtest.mu.Lock()
	s.loadtest.runner = runner
	s.loadtest.cancel = cancel
	s.loadtest.running = true
	s.loadtest.mu.Unlock()

	go func() {
		stats := runner.Run(runCtx, plan, req.Protocol, reqFn)
		runner.Release()
		s.loadtest.mu.Lock()
		s.loadtest.running = false
		s.loadtest.result = stats
		s.loadtest.mu.Unlock()
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func orDefaultSchedule(s string) string {
	if s == "" {
		return string(loadtest.ScheduleSoak)
	}
	return s
}

// buildRequestFunc returns the virtual-user request cycle for protocol:
// a real Modbus read round-trip against this process's own Modbus
// server for "modbus", and a plain TCP dial/close health check (the
// raw_tcp simulator's listener) for every other protocol — the
// simulators here are servers, not clients, so load-testing every wire
// codec's client side is out of scope for this collaborator.
func (s *Server) buildRequestFunc(protocol string) loadtest.RequestFunc {
	switch protocol {
	case "modbus":
		addr := fmt.Sprintf("127.0.0.1:%d", s.ctx.Config.Server.Modbus.Port)
		return func(ctx context.Context) error {
			client, err := modbus.Dial(ctx, addr)
			if err != nil {
				return err
			}
			defer client.Close()
			_, err = client.ReadHoldingRegisters(ctx, 1, 0, 1)
			return err
		}
	default:
		addr := fmt.Sprintf("127.0.0.1:%d", s.ctx.Config.Server.RawTCP.Port)
		return func(ctx context.Context) error {
			dialer := net.Dialer{Timeout: 5 * time.Second}
			conn, err := dialer.DialContext(ctx, "tcp", addr)
			if err != nil {
				return err
			}
			return conn.Close()
		}
	}
}
