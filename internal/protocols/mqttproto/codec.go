// Package mqttproto implements an MQTT 3.1.1 broker: wire codec, topic
// filter matching, session/retained-message state, and a TCP server.
// The codec uses the standard fixed-header/remaining-length/UTF-8-string
// framing; the broker is a real publish/subscribe router with topic
// matching, retained-message redelivery, and last-will delivery.
package mqttproto

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Packet types.
const (
	TypeConnect     byte = 1
	TypeConnAck     byte = 2
	TypePublish     byte = 3
	TypePubAck      byte = 4
	TypePubRec      byte = 5
	TypePubRel      byte = 6
	TypePubComp     byte = 7
	TypeSubscribe   byte = 8
	TypeSubAck      byte = 9
	TypeUnsubscribe byte = 10
	TypeUnsubAck    byte = 11
	TypePingReq     byte = 12
	TypePingResp    byte = 13
	TypeDisconnect  byte = 14
)

// CONNACK return codes.
const (
	ConnAckAccepted               byte = 0
	ConnAckRefusedProtocolVersion byte = 1
	ConnAckRefusedIdentifier      byte = 2
	ConnAckRefusedServerUnavail   byte = 3
	ConnAckRefusedBadCredentials  byte = 4
	ConnAckRefusedNotAuthorized   byte = 5
)

// RawPacket is one fixed-header-framed MQTT packet before payload decoding.
type RawPacket struct {
	Type    byte
	Flags   byte
	Payload []byte
}

// Connect is a decoded CONNECT payload.
type Connect struct {
	ProtocolName  string
	ProtocolLevel byte
	CleanSession  bool
	WillFlag      bool
	WillQos       byte
	WillRetain    bool
	KeepAlive     uint16
	ClientID      string
	WillTopic     string
	WillMessage   string
	Username      string
	Password      string
	HasUsername   bool
	HasPassword   bool
}

// Publish is a decoded PUBLISH payload.
type Publish struct {
	Topic    string
	Qos      byte
	Retain   bool
	Dup      bool
	Payload  []byte
	PacketID uint16
}

// TopicFilter pairs a subscription topic filter with its requested QoS.
type TopicFilter struct {
	Filter string
	Qos    byte
}

// Subscribe is a decoded SUBSCRIBE payload.
type Subscribe struct {
	PacketID uint16
	Filters  []TopicFilter
}

// Unsubscribe is a decoded UNSUBSCRIBE payload.
type Unsubscribe struct {
	PacketID uint16
	Filters  []string
}

// ReadPacket decodes one fixed-header-framed packet from r.
func ReadPacket(r *bufio.Reader) (*RawPacket, error) {
	first, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	length, err := readRemainingLength(r)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}
	return &RawPacket{Type: (first >> 4) & 0x0F, Flags: first & 0x0F, Payload: payload}, nil
}

func readRemainingLength(r *bufio.Reader) (int, error) {
	length, multiplier := 0, 1
	for i := 0; i < 4; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		length += int(b&127) * multiplier
		if b&128 == 0 {
			return length, nil
		}
		multiplier *= 128
	}
	return 0, fmt.Errorf("mqttproto: remaining length field too long")
}

func encodeRemainingLength(length int) []byte {
	var out []byte
	for {
		b := byte(length % 128)
		length /= 128
		if length > 0 {
			b |= 0x80
		}
		out = append(out, b)
		if length == 0 {
			return out
		}
	}
}

// EncodePacket renders packetType/flags/payload into a full wire frame.
func EncodePacket(packetType, flags byte, payload []byte) []byte {
	header := (packetType << 4) | flags
	out := append([]byte{header}, encodeRemainingLength(len(payload))...)
	return append(out, payload...)
}

func readMqttString(data []byte) (string, int) {
	if len(data) < 2 {
		return "", 0
	}
	length := int(binary.BigEndian.Uint16(data[0:2]))
	if len(data) < 2+length {
		return "", 0
	}
	return string(data[2 : 2+length]), 2 + length
}

func encodeMqttString(s string) []byte {
	out := make([]byte, 2+len(s))
	binary.BigEndian.PutUint16(out[0:2], uint16(len(s)))
	copy(out[2:], s)
	return out
}

// ParseConnect decodes a CONNECT packet payload.
func ParseConnect(payload []byte) (*Connect, error) {
	c := &Connect{}
	pos := 0

	name, n := readMqttString(payload[pos:])
	if n == 0 {
		return nil, fmt.Errorf("mqttproto: invalid protocol name")
	}
	c.ProtocolName = name
	pos += n

	if len(payload) < pos+2 {
		return nil, fmt.Errorf("mqttproto: connect payload too short")
	}
	c.ProtocolLevel = payload[pos]
	flags := payload[pos+1]
	pos += 2

	c.CleanSession = flags&0x02 != 0
	c.WillFlag = flags&0x04 != 0
	c.WillQos = (flags >> 3) & 0x03
	c.WillRetain = flags&0x20 != 0
	c.HasPassword = flags&0x40 != 0
	c.HasUsername = flags&0x80 != 0

	if len(payload) < pos+2 {
		return nil, fmt.Errorf("mqttproto: missing keepalive")
	}
	c.KeepAlive = binary.BigEndian.Uint16(payload[pos : pos+2])
	pos += 2

	clientID, n := readMqttString(payload[pos:])
	if n == 0 {
		return nil, fmt.Errorf("mqttproto: invalid client id")
	}
	c.ClientID = clientID
	pos += n

	if c.WillFlag {
		topic, n := readMqttString(payload[pos:])
		if n == 0 {
			return nil, fmt.Errorf("mqttproto: invalid will topic")
		}
		c.WillTopic = topic
		pos += n

		msg, n := readMqttString(payload[pos:])
		if n == 0 {
			return nil, fmt.Errorf("mqttproto: invalid will message")
		}
		c.WillMessage = msg
		pos += n
	}

	if c.HasUsername {
		user, n := readMqttString(payload[pos:])
		if n == 0 {
			return nil, fmt.Errorf("mqttproto: invalid username")
		}
		c.Username = user
		pos += n
	}
	if c.HasPassword {
		pass, n := readMqttString(payload[pos:])
		if n == 0 {
			return nil, fmt.Errorf("mqttproto: invalid password")
		}
		c.Password = pass
		pos += n
	}

	return c, nil
}

// EncodeConnAck builds a CONNACK payload.
func EncodeConnAck(sessionPresent bool, returnCode byte) []byte {
	flags := byte(0)
	if sessionPresent {
		flags = 1
	}
	return []byte{flags, returnCode}
}

// ParsePublish decodes a PUBLISH packet given its raw fixed header flags.
func ParsePublish(flags byte, payload []byte) (*Publish, error) {
	p := &Publish{
		Qos:    (flags >> 1) & 0x03,
		Retain: flags&0x01 != 0,
		Dup:    flags&0x08 != 0,
	}
	topic, n := readMqttString(payload)
	if n == 0 {
		return nil, fmt.Errorf("mqttproto: invalid publish topic")
	}
	p.Topic = topic
	pos := n

	if p.Qos > 0 {
		if len(payload) < pos+2 {
			return nil, fmt.Errorf("mqttproto: missing publish packet id")
		}
		p.PacketID = binary.BigEndian.Uint16(payload[pos : pos+2])
		pos += 2
	}
	p.Payload = payload[pos:]
	return p, nil
}

// EncodePublish builds a PUBLISH payload and its fixed-header flags.
func EncodePublish(p Publish) (flags byte, payload []byte) {
	flags = (p.Qos << 1)
	if p.Retain {
		flags |= 0x01
	}
	if p.Dup {
		flags |= 0x08
	}
	out := encodeMqttString(p.Topic)
	if p.Qos > 0 {
		pid := make([]byte, 2)
		binary.BigEndian.PutUint16(pid, p.PacketID)
		out = append(out, pid...)
	}
	out = append(out, p.Payload...)
	return flags, out
}

func packetIDPayload(id uint16) []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, id)
	return out
}

// ParseSubscribe decodes a SUBSCRIBE packet payload.
func ParseSubscribe(payload []byte) (*Subscribe, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("mqttproto: subscribe payload too short")
	}
	s := &Subscribe{PacketID: binary.BigEndian.Uint16(payload[0:2])}
	pos := 2
	for pos < len(payload) {
		topic, n := readMqttString(payload[pos:])
		if n == 0 || pos+n >= len(payload) {
			break
		}
		pos += n
		qos := payload[pos]
		pos++
		s.Filters = append(s.Filters, TopicFilter{Filter: topic, Qos: qos})
	}
	return s, nil
}

// EncodeSubAck builds a SUBACK payload: packet id followed by one granted
// QoS (or 0x80 for a failed subscription) per requested filter.
func EncodeSubAck(packetID uint16, grantedQos []byte) []byte {
	out := packetIDPayload(packetID)
	return append(out, grantedQos...)
}

// ParseUnsubscribe decodes an UNSUBSCRIBE packet payload.
func ParseUnsubscribe(payload []byte) (*Unsubscribe, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("mqttproto: unsubscribe payload too short")
	}
	u := &Unsubscribe{PacketID: binary.BigEndian.Uint16(payload[0:2])}
	pos := 2
	for pos < len(payload) {
		topic, n := readMqttString(payload[pos:])
		if n == 0 {
			break
		}
		pos += n
		u.Filters = append(u.Filters, topic)
	}
	return u, nil
}

// EncodeUnsubAck builds an UNSUBACK payload.
func EncodeUnsubAck(packetID uint16) []byte {
	return packetIDPayload(packetID)
}

// EncodePubAck/EncodePubRec/EncodePubRel/EncodePubComp all share the
// packet-id-only payload shape.
func EncodePubAck(packetID uint16) []byte { return packetIDPayload(packetID) }
func EncodePubRec(packetID uint16) []byte { return packetIDPayload(packetID) }
func EncodePubRel(packetID uint16) []byte { return packetIDPayload(packetID) }
func EncodePubComp(packetID uint16) []byte { return packetIDPayload(packetID) }

// ParsePacketID decodes the leading packet id shared by PUBACK/PUBREC/
// PUBREL/PUBCOMP payloads.
func ParsePacketID(payload []byte) (uint16, error) {
	if len(payload) < 2 {
		return 0, fmt.Errorf("mqttproto: payload too short for packet id")
	}
	return binary.BigEndian.Uint16(payload[0:2]), nil
}
