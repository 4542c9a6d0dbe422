package bacnet

import (
	"context"
	"net"
	"time"

	"github.com/ioprotolab/simhub/internal/capture"
	"github.com/ioprotolab/simhub/internal/fault"
	"github.com/ioprotolab/simhub/internal/transport/udp"
)

// Server owns a BACnet/IP UDP listener and device table, built directly on
// the shared transport/udp.Server/Handler — BACnet/IP's services here are
// strictly request-response, so unlike coap.Server this needs no extra
// plumbing for unsolicited pushes.
type Server struct {
	Table    *Table
	Bus      *capture.Bus
	Registry *fault.Registry

	udp *udp.Server
}

func NewServer(bind string, port int, table *Table, bus *capture.Bus, registry *fault.Registry) *Server {
	s := &Server{Table: table, Bus: bus, Registry: registry}
	s.udp = &udp.Server{Bind: bind, Port: port, Handler: udp.HandlerFunc(s.handle)}
	return s
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	return s.udp.ListenAndServe(ctx)
}

func (s *Server) handle(addr *net.UDPAddr, data []byte) []byte {
	s.publishFrame(capture.DirectionInbound, addr.String(), "", data)

	if s.Registry != nil {
		if ok, mod := s.Registry.ShouldModifyPacket("bacnet", data); ok {
			if mod.Drop {
				return nil
			}
			if mod.Delay > 0 {
				time.Sleep(mod.Delay)
			}
		}
	}

	req, err := Parse(data)
	if err != nil {
		return nil
	}

	resp := Dispatch(s.Table, req)
	if resp == nil {
		return nil
	}
	s.publishFrame(capture.DirectionOutbound, "", addr.String(), resp)
	return resp
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
		Protocol:  "bacnet",
		Payload:   append([]byte(nil), payload...),
		Info:      "bacnet apdu",
	})
}

func hostOf(addr string) string {
	if addr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func portOf(addr string) int {
	if addr == "" {
		return 0
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	var p int
	for _, c := range port {
		if c < '0' || c > '9' {
			return 0
		}
		p = p*10 + int(c-'0')
	}
	return p
}
