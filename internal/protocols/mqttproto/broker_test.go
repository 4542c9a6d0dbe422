package mqttproto

import (
	"bufio"
	"net"
	"testing"
	"time"
)

func readPublish(t *testing.T, r *bufio.Reader) *Publish {
	t.Helper()
	raw, err := ReadPacket(r)
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if raw.Type != TypePublish {
		t.Fatalf("expected PUBLISH, got type %d", raw.Type)
	}
	pub, err := ParsePublish(raw.Flags, raw.Payload)
	if err != nil {
		t.Fatalf("ParsePublish: %v", err)
	}
	return pub
}

func TestBrokerPublishFansOutToMatchingSubscriber(t *testing.T) {
	broker := NewBroker()
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	session := broker.Connect("sub-1", serverConn, true)
	broker.Subscribe(session, "sensors/+/temp", 0)

	go broker.Publish(Publish{Topic: "sensors/room1/temp", Qos: 0, Payload: []byte("21.0")})

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	pub := readPublish(t, bufio.NewReader(clientConn))
	if pub.Topic != "sensors/room1/temp" || string(pub.Payload) != "21.0" {
		t.Fatalf("unexpected delivered publish: %+v", pub)
	}
}

func TestBrokerDoesNotDeliverToNonMatchingSubscriber(t *testing.T) {
	broker := NewBroker()
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	session := broker.Connect("sub-2", serverConn, true)
	broker.Subscribe(session, "other/topic", 0)

	done := make(chan struct{})
	go func() {
		broker.Publish(Publish{Topic: "sensors/room1/temp", Qos: 0, Payload: []byte("21.0")})
		close(done)
	}()
	<-done

	clientConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, err := ReadPacket(bufio.NewReader(clientConn))
	if err == nil {
		t.Fatal("expected a read timeout since no subscription matched")
	}
}

func TestBrokerRetainedMessageDeliveredOnSubscribe(t *testing.T) {
	broker := NewBroker()
	broker.Publish(Publish{Topic: "sensors/room1/temp", Qos: 0, Retain: true, Payload: []byte("19.5")})

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	session := broker.Connect("sub-3", serverConn, true)
	go broker.Subscribe(session, "sensors/room1/temp", 0)

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	pub := readPublish(t, bufio.NewReader(clientConn))
	if !pub.Retain || string(pub.Payload) != "19.5" {
		t.Fatalf("expected retained delivery, got %+v", pub)
	}
}

func TestBrokerEmptyRetainedPayloadClears(t *testing.T) {
	broker := NewBroker()
	broker.Publish(Publish{Topic: "t", Qos: 0, Retain: true, Payload: []byte("x")})
	broker.Publish(Publish{Topic: "t", Qos: 0, Retain: true, Payload: nil})

	if _, ok := broker.retained["t"]; ok {
		t.Fatal("expected retained message to be cleared by empty payload")
	}
}

func TestSessionMatchingQosReturnsGrantedQos(t *testing.T) {
	conn, _ := net.Pipe()
	defer conn.Close()
	s := newSession("c", conn, true)
	s.subscribe("a/b", 1)
	qos, ok := s.matchingQos("a/b")
	if !ok || qos != 1 {
		t.Fatalf("expected matching qos 1, got %d ok=%v", qos, ok)
	}
	if _, ok := s.matchingQos("x/y"); ok {
		t.Fatal("expected no match for unrelated topic")
	}
}
