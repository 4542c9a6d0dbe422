package modbus

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/ioprotolab/simhub/internal/capture"
	"github.com/ioprotolab/simhub/internal/fault"
	"github.com/ioprotolab/simhub/internal/transport/tcp"
)

// Server owns a Modbus TCP listener and its device table, built on the
// shared transport/tcp.Server Server+Handler style, parsing MBAP frames
// off the wire and dispatching them against per-unit state.
type Server struct {
	Table    *Table
	Bus      *capture.Bus
	Registry *fault.Registry // optional; nil disables fault injection

	tcp *tcp.Server
}

// NewServer builds a Modbus server bound to port, publishing every inbound
// and outbound PDU as a capture.PacketEvent onto bus.
func NewServer(bind string, port int, table *Table, bus *capture.Bus, registry *fault.Registry) *Server {
	s := &Server{Table: table, Bus: bus, Registry: registry}
	s.tcp = &tcp.Server{Bind: bind, Port: port, Handler: tcp.HandlerFunc(s.handle)}
	return s
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	return s.tcp.ListenAndServe(ctx)
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	buf := make([]byte, 0, 512)
	header := make([]byte, 256)

	for {
		n, err := conn.Read(header)
		if err != nil {
			if err != io.EOF {
				s.publishLocal(fmt.Sprintf("modbus read error from %s: %v", remote, err))
			}
			return
		}
		buf = append(buf, header[:n]...)

		for {
			frameLen := ParseMBAPLength(buf)
			if frameLen == 0 || len(buf) < frameLen {
				break
			}
			frameBytes := buf[:frameLen]
			buf = buf[frameLen:]

			s.publishPDU(capture.DirectionInbound, remote, conn.LocalAddr().String(), frameBytes)

			req, err := Parse(frameBytes)
			if err != nil {
				continue
			}

			if s.Registry != nil {
				if ok, mod := s.Registry.ShouldModifyPacket("modbus", frameBytes); ok {
					if mod.Drop {
						continue
					}
					if mod.Delay > 0 {
						time.Sleep(mod.Delay)
					}
				}
			}

			resp := Dispatch(s.Table, req)
			if _, err := conn.Write(resp); err != nil {
				return
			}
			s.publishPDU(capture.DirectionOutbound, conn.LocalAddr().String(), remote, resp)
		}
	}
}

func (s *Server) publishPDU(dir capture.Direction, src, dst string, payload []byte) {
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
		Protocol:  "modbus",
		Payload:   append([]byte(nil), payload...),
		Info:      "modbus pdu",
	})
}

func (s *Server) publishLocal(info string) {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(capture.PacketEvent{
		Timestamp: time.Now().UTC(),
		Direction: capture.DirectionLocal,
		Protocol:  "modbus",
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
