package mqttproto

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/ioprotolab/simhub/internal/capture"
	"github.com/ioprotolab/simhub/internal/fault"
	"github.com/ioprotolab/simhub/internal/transport/tcp"
	"go.uber.org/zap"
)

// Server owns an MQTT broker and its TCP listener, built on the shared
// transport/tcp.Server Server+Handler style, with session and last-will
// handling.
type Server struct {
	Broker   *Broker
	Bus      *capture.Bus
	Registry *fault.Registry
	Log      *zap.Logger

	tcp *tcp.Server
}

func NewServer(bind string, port int, broker *Broker, bus *capture.Bus, registry *fault.Registry, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{Broker: broker, Bus: bus, Registry: registry, Log: log}
	s.tcp = &tcp.Server{Bind: bind, Port: port, Handler: tcp.HandlerFunc(s.handle)}
	return s
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	return s.tcp.ListenAndServe(ctx)
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	reader := bufio.NewReader(conn)

	var session *Session
	var clientID string

	defer func() {
		if session != nil {
			if session.Will != nil {
				w := session.Will
				s.Broker.Publish(Publish{Topic: w.Topic, Qos: w.Qos, Retain: w.Retain, Payload: w.Message})
			}
			s.Broker.Disconnect(clientID)
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		raw, err := ReadPacket(reader)
		if err != nil {
			if err != io.EOF {
				s.publishLocal(fmt.Sprintf("mqtt read error from %s: %v", remote, err))
			}
			return
		}

		if s.Registry != nil {
			if ok, mod := s.Registry.ShouldModifyPacket("mqtt", raw.Payload); ok {
				if mod.Drop {
					continue
				}
				if mod.Delay > 0 {
					time.Sleep(mod.Delay)
				}
			}
		}

		switch raw.Type {
		case TypeConnect:
			connect, err := ParseConnect(raw.Payload)
			if err != nil {
				s.Log.Warn("mqtt connect parse error", zap.Error(err))
				return
			}
			session = s.Broker.Connect(connect.ClientID, conn, connect.CleanSession)
			clientID = connect.ClientID
			if connect.WillFlag {
				session.Will = &Will{Topic: connect.WillTopic, Message: []byte(connect.WillMessage), Qos: connect.WillQos, Retain: connect.WillRetain}
			}
			conn.Write(EncodePacket(TypeConnAck, 0, EncodeConnAck(false, ConnAckAccepted)))
			s.publishLocal(fmt.Sprintf("mqtt connect client=%s clean=%v", connect.ClientID, connect.CleanSession))

		case TypePublish:
			pub, err := ParsePublish(raw.Flags, raw.Payload)
			if err != nil {
				continue
			}
			s.publishPDU(capture.DirectionInbound, remote, conn.LocalAddr().String(), raw.Payload, "publish "+pub.Topic)
			s.Broker.Publish(*pub)
			switch pub.Qos {
			case 1:
				conn.Write(EncodePacket(TypePubAck, 0, EncodePubAck(pub.PacketID)))
			case 2:
				conn.Write(EncodePacket(TypePubRec, 0, EncodePubRec(pub.PacketID)))
			}

		case TypePubRel:
			id, err := ParsePacketID(raw.Payload)
			if err == nil {
				conn.Write(EncodePacket(TypePubComp, 0, EncodePubComp(id)))
			}

		case TypePubAck, TypePubRec, TypePubComp:
			// broker-as-publisher acknowledgments are not modeled; nothing to do.

		case TypeSubscribe:
			sub, err := ParseSubscribe(raw.Payload)
			if err != nil || session == nil {
				continue
			}
			granted := make([]byte, 0, len(sub.Filters))
			for _, f := range sub.Filters {
				s.Broker.Subscribe(session, f.Filter, f.Qos)
				granted = append(granted, f.Qos)
			}
			conn.Write(EncodePacket(TypeSubAck, 0, EncodeSubAck(sub.PacketID, granted)))

		case TypeUnsubscribe:
			unsub, err := ParseUnsubscribe(raw.Payload)
			if err != nil || session == nil {
				continue
			}
			for _, f := range unsub.Filters {
				s.Broker.Unsubscribe(session, f)
			}
			conn.Write(EncodePacket(TypeUnsubAck, 0, EncodeUnsubAck(unsub.PacketID)))

		case TypePingReq:
			conn.Write(EncodePacket(TypePingResp, 0, nil))

		case TypeDisconnect:
			if session != nil {
				session.Will = nil // clean disconnect: no will is published
			}
			return
		}
	}
}

func (s *Server) publishPDU(dir capture.Direction, src, dst string, payload []byte, info string) {
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
		Protocol:  "mqtt",
		Payload:   append([]byte(nil), payload...),
		Info:      info,
	})
}

func (s *Server) publishLocal(info string) {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(capture.PacketEvent{
		Timestamp: time.Now().UTC(),
		Direction: capture.DirectionLocal,
		Protocol:  "mqtt",
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
