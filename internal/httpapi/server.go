// Package httpapi is the thin REST+WebSocket collaborator that adapts
// internal/app.Context's programmatic surface to HTTP without adding any
// simulator logic of its own. It deliberately carries no auth or
// persistence layer — every handler reads or mutates the Context state
// directly and returns JSON.
//
// This is a real control-plane transport, not one of the simulated wire
// protocols, so it uses stdlib net/http plus gorilla/websocket rather
// than any hand-rolled framing.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ioprotolab/simhub/internal/app"
	"github.com/ioprotolab/simhub/internal/logging"
)

// Server is the HTTP/WebSocket front door onto one app.Context.
type Server struct {
	ctx  *app.Context
	log  *zap.Logger
	http *http.Server
	hub  *hub

	simFlags map[string]*atomic.Bool
	replay   replayState
	loadtest loadtestState
}

// New builds a Server bound to addr ("host:port") that serves the REST
// and WebSocket surface over ctx.
func New(ctx *app.Context, bind string, port int) *Server {
	log := logging.Module(ctx.Log, "httpapi")
	s := &Server{
		ctx:      ctx,
		log:      log,
		hub:      newHub(log),
		simFlags: newSimFlags(),
	}
	mux := http.NewServeMux()
	s.routes(mux)
	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe runs the HTTP server until ctx is canceled, matching the
// same ListenAndServe(ctx) shape every protocol simulator's server uses.
func (s *Server) ListenAndServe(ctx context.Context) error {
	stop := s.bridgeBusesToHub()
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("httpapi listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
