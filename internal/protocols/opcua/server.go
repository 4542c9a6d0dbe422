package opcua

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

// Server negotiates the OPC UA HEL/ACK handshake over the shared
// internal/transport/tcp.Server, the same Server+Handler shape modbus and
// rawtcp use.
type Server struct {
	ReceiveBufSize uint32
	SendBufSize    uint32
	MaxMessageSize uint32
	MaxChunkCount  uint32

	Bus      *capture.Bus
	Registry *fault.Registry

	tcp *tcp.Server
}

// NewServer builds a handshake server bound to port with the negotiated
// buffer sizes advertised in the ACK.
func NewServer(bind string, port int, bus *capture.Bus, registry *fault.Registry) *Server {
	s := &Server{
		ReceiveBufSize: 65536,
		SendBufSize:    65536,
		MaxMessageSize: 4 * 1024 * 1024,
		MaxChunkCount:  0, // 0 = unlimited, per OPC UA Part 6
		Bus:            bus,
		Registry:       registry,
	}
	s.tcp = &tcp.Server{Bind: bind, Port: port, Handler: tcp.HandlerFunc(s.handle)}
	return s
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	return s.tcp.ListenAndServe(ctx)
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	header := make([]byte, headerSize)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		msgType, bodyLen, err := FrameLength(header)
		if err != nil {
			return
		}
		body := make([]byte, bodyLen)
		if bodyLen > 0 {
			if _, err := io.ReadFull(conn, body); err != nil {
				return
			}
		}
		frame := append(append([]byte(nil), header...), body...)
		s.publishFrame(capture.DirectionInbound, remote, conn.LocalAddr().String(), frame)

		if s.Registry != nil {
			if ok, mod := s.Registry.ShouldModifyPacket("opcua", frame); ok {
				if mod.Drop {
					continue
				}
				if mod.Delay > 0 {
					time.Sleep(mod.Delay)
				}
			}
		}

		resp := s.respond(msgType, body)
		if resp == nil {
			return
		}
		if _, err := conn.Write(resp); err != nil {
			return
		}
		s.publishFrame(capture.DirectionOutbound, conn.LocalAddr().String(), remote, resp)

		// Full SecureChannel/Session establishment is out of scope; this
		// simulator answers every HEL and keeps the connection open for the
		// client's framing-layer inspection. Any other message type gets an
		// ERR and the connection is closed.
		if msgType != MsgHello {
			return
		}
	}
}

func (s *Server) respond(msgType string, body []byte) []byte {
	if msgType != MsgHello {
		return EncodeError(ErrorMessage{Code: 0x80010000, Reason: "BadTcpMessageTypeInvalid"})
	}
	hello, err := ParseHello(body)
	if err != nil {
		return EncodeError(ErrorMessage{Code: 0x80080000, Reason: "BadDecodingError"})
	}
	return EncodeAcknowledge(Acknowledge{
		Version:        hello.Version,
		ReceiveBufSize: minUint32(hello.ReceiveBufSize, s.ReceiveBufSize),
		SendBufSize:    minUint32(hello.SendBufSize, s.SendBufSize),
		MaxMessageSize: minUint32Nonzero(hello.MaxMessageSize, s.MaxMessageSize),
		MaxChunkCount:  s.MaxChunkCount,
	})
}

func minUint32(a, b uint32) uint32 {
	if a == 0 {
		return b
	}
	if a < b {
		return a
	}
	return b
}

// minUint32Nonzero treats 0 as "no limit" on both sides, returning the
// smaller of the two nonzero limits or 0 if either side is unlimited.
func minUint32Nonzero(a, b uint32) uint32 {
	if a == 0 || b == 0 {
		return 0
	}
	if a < b {
		return a
	}
	return b
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
		Protocol:  "opcua",
		Payload:   append([]byte(nil), payload...),
		Info:      "opcua handshake chunk",
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
