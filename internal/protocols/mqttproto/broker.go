package mqttproto

import (
	"net"
	"sync"
)

// Broker owns every connected session, retained-message state, and
// subscription fan-out: a real publish/subscribe router rather than a
// bare per-topic retain flag.
type Broker struct {
	mu       sync.Mutex
	sessions map[string]*Session
	retained map[string]Publish
}

func NewBroker() *Broker {
	return &Broker{
		sessions: make(map[string]*Session),
		retained: make(map[string]Publish),
	}
}

// Connect registers (or replaces) the session for clientID, closing out
// any prior connection under the same id — MQTT 3.1.1 requires the
// broker disconnect a duplicate client id.
func (b *Broker) Connect(clientID string, conn net.Conn, clean bool) *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	if prior, ok := b.sessions[clientID]; ok {
		prior.conn.Close()
	}
	s := newSession(clientID, conn, clean)
	b.sessions[clientID] = s
	return s
}

// Disconnect removes clientID's session. If the session carried a will
// and wasn't a clean DISCONNECT, the caller is responsible for publishing
// it before calling Disconnect.
func (b *Broker) Disconnect(clientID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, clientID)
}

// Subscribe records filter on session and replays any retained message
// whose topic matches it, per MQTT 3.1.1 §3.8.4.
func (b *Broker) Subscribe(s *Session, filter string, qos byte) {
	s.subscribe(filter, qos)

	b.mu.Lock()
	var matches []Publish
	for topic, pub := range b.retained {
		if TopicMatches(filter, topic) {
			matches = append(matches, pub)
		}
	}
	b.mu.Unlock()

	for _, pub := range matches {
		deliverQos := pub.Qos
		if qos < deliverQos {
			deliverQos = qos
		}
		writePublish(s.conn, Publish{Topic: pub.Topic, Qos: deliverQos, Retain: true, Payload: pub.Payload})
	}
}

func (b *Broker) Unsubscribe(s *Session, filter string) {
	s.unsubscribe(filter)
}

// Publish fans pub out to every session with a matching subscription and,
// if pub.Retain, updates (or clears, on an empty payload) the retained
// message for pub.Topic.
func (b *Broker) Publish(pub Publish) {
	if pub.Retain {
		b.mu.Lock()
		if len(pub.Payload) == 0 {
			delete(b.retained, pub.Topic)
		} else {
			b.retained[pub.Topic] = pub
		}
		b.mu.Unlock()
	}

	b.mu.Lock()
	sessions := make([]*Session, 0, len(b.sessions))
	for _, s := range b.sessions {
		sessions = append(sessions, s)
	}
	b.mu.Unlock()

	for _, s := range sessions {
		qos, ok := s.matchingQos(pub.Topic)
		if !ok {
			continue
		}
		deliverQos := pub.Qos
		if qos < deliverQos {
			deliverQos = qos
		}
		writePublish(s.conn, Publish{Topic: pub.Topic, Qos: deliverQos, Payload: pub.Payload})
	}
}

func writePublish(conn net.Conn, pub Publish) {
	flags, payload := EncodePublish(pub)
	conn.Write(EncodePacket(TypePublish, flags, payload))
}
