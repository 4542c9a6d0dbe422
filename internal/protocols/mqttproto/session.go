package mqttproto

import (
	"net"
	"sync"
)

// Will is a session's last-will message, published by the broker when the
// owning connection drops without a clean DISCONNECT.
type Will struct {
	Topic   string
	Message []byte
	Qos     byte
	Retain  bool
}

// Session is one client's broker-side state: its connection, clean-session
// flag, live subscriptions, and optional last will.
type Session struct {
	mu            sync.Mutex
	ClientID      string
	conn          net.Conn
	CleanSession  bool
	Will          *Will
	subscriptions map[string]byte // topic filter -> granted QoS
}

func newSession(clientID string, conn net.Conn, clean bool) *Session {
	return &Session{
		ClientID:      clientID,
		conn:          conn,
		CleanSession:  clean,
		subscriptions: make(map[string]byte),
	}
}

func (s *Session) subscribe(filter string, qos byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[filter] = qos
}

func (s *Session) unsubscribe(filter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, filter)
}

// matchingQos returns the highest granted QoS among the subscribed filters
// that match topic, or (0, false) if no subscription matches.
func (s *Session) matchingQos(topic string) (byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	best, matched := byte(0), false
	for filter, qos := range s.subscriptions {
		if TopicMatches(filter, topic) {
			if !matched || qos > best {
				best, matched = qos, true
			}
		}
	}
	return best, matched
}

func (s *Session) filters() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.subscriptions))
	for f := range s.subscriptions {
		out = append(out, f)
	}
	return out
}
