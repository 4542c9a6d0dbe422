package coap

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ioprotolab/simhub/internal/capture"
	"github.com/ioprotolab/simhub/internal/fault"
	"go.uber.org/zap"
)

// Server owns a CoAP UDP listener and its resource store. Unlike the
// shared transport/udp.Server, the listener is kept on the struct (rather
// than local to ListenAndServe) so Observe notifications can be pushed
// to a client outside of a request/response cycle.
type Server struct {
	Bind     string
	Port     int
	Store    *Store
	Bus      *capture.Bus
	Registry *fault.Registry
	Log      *zap.Logger

	mu   sync.Mutex
	conn *net.UDPConn
}

func NewServer(bind string, port int, store *Store, bus *capture.Bus, registry *fault.Registry, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Bind: bind, Port: port, Store: store, Bus: bus, Registry: registry, Log: log}
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	bind := s.Bind
	if bind == "" {
		bind = "0.0.0.0"
	}
	udpAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", bind, s.Port))
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 65535)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				wg.Wait()
				return nil
			default:
				continue
			}
		}
		data := append([]byte(nil), buf[:n]...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handlePacket(conn, addr, data)
		}()
	}
}

func (s *Server) handlePacket(conn *net.UDPConn, addr *net.UDPAddr, data []byte) {
	s.publishPDU(capture.DirectionInbound, addr.String(), conn.LocalAddr().String(), data)

	if s.Registry != nil {
		if ok, mod := s.Registry.ShouldModifyPacket("coap", data); ok {
			if mod.Drop {
				return
			}
			if mod.Delay > 0 {
				time.Sleep(mod.Delay)
			}
		}
	}

	req, err := Parse(data)
	if err != nil {
		return
	}

	resp := s.dispatch(req, addr)
	if resp == nil {
		return
	}
	out := Encode(*resp)
	conn.WriteToUDP(out, addr)
	s.publishPDU(capture.DirectionOutbound, conn.LocalAddr().String(), addr.String(), out)
}

func (s *Server) dispatch(req *Message, addr *net.UDPAddr) *Message {
	path := req.URIPath()

	ackType := TypeAck
	if req.Type == TypeNonConfirmable {
		ackType = TypeNonConfirmable
	}
	reply := func(code byte, contentFormat uint32, payload []byte) *Message {
		var opts []Option
		if contentFormat != 0 || code == CodeContent {
			opts = append(opts, ContentFormatOption(contentFormat))
		}
		return &Message{Version: 1, Type: ackType, Code: code, MessageID: req.MessageID, Token: req.Token, Options: opts, Payload: payload}
	}

	switch req.Code {
	case CodeGET:
		res, ok := s.Store.Get(path)
		if !ok {
			return reply(CodeNotFound, 0, nil)
		}
		if observe, present := req.Observe(); present {
			if observe == 0 {
				s.Store.Observe(path, addr, req.Token)
			} else {
				s.Store.Deregister(path, addr)
			}
		}
		m := reply(CodeContent, res.ContentFormat, res.Payload)
		if _, present := req.Observe(); present {
			m.Options = append(m.Options, ObserveOption(s.Store.nextSeq(path)))
		}
		return m

	case CodePOST:
		cf := contentFormatOf(req)
		s.Store.Put(path, cf, req.Payload)
		return reply(CodeCreated, 0, nil)

	case CodePUT:
		if _, ok := s.Store.Get(path); !ok {
			return reply(CodeNotFound, 0, nil)
		}
		cf := contentFormatOf(req)
		s.Store.Put(path, cf, req.Payload)
		s.notifyObservers(path)
		return reply(CodeChanged, 0, nil)

	case CodeDELETE:
		if !s.Store.Delete(path) {
			return reply(CodeNotFound, 0, nil)
		}
		return reply(CodeDeleted, 0, nil)

	default:
		return reply(CodeMethodNotAllowed, 0, nil)
	}
}

func contentFormatOf(m *Message) uint32 {
	for _, o := range m.Options {
		if o.Number == OptionContentFormat {
			return decodeUint(o.Value)
		}
	}
	return ContentFormatJSON
}

// notifyObservers pushes an unsolicited CoAP notification to every
// current observer of path, carrying the resource's latest value.
func (s *Server) notifyObservers(path string) {
	res, ok := s.Store.Get(path)
	if !ok {
		return
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	seq := s.Store.nextSeq(path)
	for _, obs := range s.Store.observersOf(path) {
		msg := Message{
			Version:   1,
			Type:      TypeNonConfirmable,
			Code:      CodeContent,
			MessageID: uint16(seq),
			Token:     obs.token,
			Options:   []Option{ObserveOption(seq), ContentFormatOption(res.ContentFormat)},
			Payload:   res.Payload,
		}
		out := Encode(msg)
		conn.WriteToUDP(out, obs.addr)
		s.publishPDU(capture.DirectionOutbound, conn.LocalAddr().String(), obs.addr.String(), out)
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
		Protocol:  "coap",
		Payload:   append([]byte(nil), payload...),
		Info:      "coap pdu",
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
