// Package rawtcp implements a generic "raw TCP" protocol simulator: a
// delimiter-framed byte stream server that echoes or hands messages to a
// handler, tracking per-connection byte/message counters for inspection.
// It builds on the shared internal/transport/tcp.Server/Handler accept
// loop, layering message framing (raw delimiter, line, or JSON) and
// connection bookkeeping on top.
package rawtcp

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ioprotolab/simhub/internal/capture"
	"github.com/ioprotolab/simhub/internal/fault"
	"github.com/ioprotolab/simhub/internal/transport/tcp"
)

// MessageHandler processes one fully-framed message and optionally returns
// a response to write back to the same connection.
type MessageHandler func(conn *Connection, msg []byte) []byte

// Server owns a raw-TCP listener, framing mode, and connection table.
type Server struct {
	Mode       Mode
	Delimiter  []byte
	MaxMessage int
	Handler    MessageHandler

	Bus      *capture.Bus
	Registry *fault.Registry

	tcp *tcp.Server

	mu      sync.Mutex
	conns   map[string]*Connection
	counter int64
}

// NewServer builds a raw-TCP server bound to port. A nil handler falls
// back to echoing every framed message back to its sender.
func NewServer(bind string, port int, mode Mode, bus *capture.Bus, registry *fault.Registry) *Server {
	s := &Server{
		Mode:       mode,
		Delimiter:  []byte("\n"),
		MaxMessage: 65536,
		Bus:        bus,
		Registry:   registry,
		conns:      make(map[string]*Connection),
	}
	s.tcp = &tcp.Server{Bind: bind, Port: port, Handler: tcp.HandlerFunc(s.handle)}
	return s
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	return s.tcp.ListenAndServe(ctx)
}

// Connections returns a snapshot of every currently tracked connection.
func (s *Server) Connections() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Snapshot, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c.Snapshot())
	}
	return out
}

func (s *Server) handle(netConn net.Conn) {
	defer netConn.Close()

	id := s.nextConnID(netConn.RemoteAddr().String())
	conn := newConnection(id, netConn.RemoteAddr().String(), netConn.LocalAddr().String())
	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()
	defer func() {
		conn.close()
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
	}()

	var buf []byte
	read := make([]byte, 4096)

	for {
		n, err := netConn.Read(read)
		if err != nil {
			if err != io.EOF {
				s.publishLocal(fmt.Sprintf("rawtcp read error from %s: %v", conn.RemoteAddr, err))
			}
			return
		}
		conn.recordReceived(n)
		s.publishFrame(capture.DirectionInbound, conn.RemoteAddr, conn.LocalAddr, read[:n])

		buf = append(buf, read[:n]...)
		if s.MaxMessage > 0 && len(buf) > s.MaxMessage {
			buf = buf[len(buf)-s.MaxMessage:]
		}

		var messages [][]byte
		messages, buf = extractMessages(s.Mode, s.Delimiter, buf)

		for _, msg := range messages {
			conn.recordMessageReceived()

			if s.Registry != nil {
				if ok, mod := s.Registry.ShouldModifyPacket("rawtcp", msg); ok {
					if mod.Drop {
						continue
					}
					if mod.Delay > 0 {
						time.Sleep(mod.Delay)
					}
				}
			}

			resp := s.respond(conn, msg)
			if resp == nil {
				continue
			}
			if s.Mode == ModeRaw {
				resp = append(append([]byte(nil), resp...), s.Delimiter...)
			}
			if _, err := netConn.Write(resp); err != nil {
				return
			}
			conn.recordSent(len(resp))
			s.publishFrame(capture.DirectionOutbound, conn.LocalAddr, conn.RemoteAddr, resp)
		}
	}
}

func (s *Server) respond(conn *Connection, msg []byte) []byte {
	if s.Handler != nil {
		return s.Handler(conn, msg)
	}
	return msg
}

func (s *Server) nextConnID(remote string) string {
	n := atomic.AddInt64(&s.counter, 1)
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%d", remote, n)))
	return hex.EncodeToString(sum[:])[:12]
}

func (s *Server) publishFrame(dir capture.Direction, src, dst string, payload []byte) {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(capture.PacketEvent{
		Timestamp: time.Now().UTC(),
		Direction: dir,
		SrcAddr:   hostOf(src),
		SrcPort:   portOf(src),
		DstAddr:   hostOf(dst),
		DstPort:   portOf(dst),
		Protocol:  "rawtcp",
		Payload:   append([]byte(nil), payload...),
		Info:      "rawtcp message",
	})
}

func (s *Server) publishLocal(info string) {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(capture.PacketEvent{
		Timestamp: time.Now().UTC(),
		Direction: capture.DirectionLocal,
		Protocol:  "rawtcp",
		Info:      info,
	})
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func portOf(addr string) int {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	var p int
	fmt.Sscanf(port, "%d", &p)
	return p
}
