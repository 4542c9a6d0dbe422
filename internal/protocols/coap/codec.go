// Package coap implements an RFC 7252 subset: the 4-byte header + token +
// options + payload wire codec, a registered-resource dispatcher with
// Observe support, and a UDP server. The codec is a pair of pure
// parse/encode functions, like every codec in this module; the server
// loop builds on the shared udp Server/Handler lifecycle, adapted with
// direct socket access so Observe notifications can be pushed outside of
// a request/response cycle.
package coap

import (
	"encoding/binary"
	"fmt"
)

// Message types.
const (
	TypeConfirmable    byte = 0
	TypeNonConfirmable byte = 1
	TypeAck            byte = 2
	TypeReset          byte = 3
)

// Method/response codes (code_class<<5 | code_detail).
const (
	CodeGET    byte = 0<<5 | 1
	CodePOST   byte = 0<<5 | 2
	CodePUT    byte = 0<<5 | 3
	CodeDELETE byte = 0<<5 | 4

	CodeCreated          byte = 2<<5 | 1
	CodeDeleted          byte = 2<<5 | 2
	CodeValid            byte = 2<<5 | 3
	CodeChanged          byte = 2<<5 | 4
	CodeContent          byte = 2<<5 | 5
	CodeBadRequest       byte = 4<<5 | 0
	CodeNotFound         byte = 4<<5 | 4
	CodeMethodNotAllowed byte = 4<<5 | 5
	CodeInternalError    byte = 5<<5 | 0
)

// Option numbers this simulator understands.
const (
	OptionObserve       = 6
	OptionURIPath       = 11
	OptionContentFormat = 12
)

// Content-Format codes (RFC 7252 §12.3).
const (
	ContentFormatLinkFormat  = 40
	ContentFormatXML         = 41
	ContentFormatOctetStream = 42
	ContentFormatJSON        = 50
)

// Option is one decoded CoAP option.
type Option struct {
	Number int
	Value  []byte
}

// Message is a fully decoded CoAP message.
type Message struct {
	Version   byte
	Type      byte
	TokenLen  byte
	Code      byte
	MessageID uint16
	Token     []byte
	Options   []Option
	Payload   []byte
}

// URIPath reassembles the message's Uri-Path options into a "/"-joined
// resource path.
func (m *Message) URIPath() string {
	path := ""
	for _, o := range m.Options {
		if o.Number == OptionURIPath {
			if path != "" {
				path += "/"
			}
			path += string(o.Value)
		}
	}
	return path
}

// Observe returns the Observe option's value and whether it was present.
// Observe=0 registers; any other value deregisters; absence leaves any
// existing registration unchanged.
func (m *Message) Observe() (uint32, bool) {
	for _, o := range m.Options {
		if o.Number == OptionObserve {
			return decodeUint(o.Value), true
		}
	}
	return 0, false
}

func decodeUint(b []byte) uint32 {
	var v uint32
	for _, byt := range b {
		v = v<<8 | uint32(byt)
	}
	return v
}

func encodeUint(v uint32) []byte {
	if v == 0 {
		return nil
	}
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, v)
	i := 0
	for i < 3 && out[i] == 0 {
		i++
	}
	return out[i:]
}

// Parse decodes one complete CoAP message from buf.
func Parse(buf []byte) (*Message, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("coap: message shorter than fixed header")
	}
	version := (buf[0] >> 6) & 0x03
	msgType := (buf[0] >> 4) & 0x03
	tokenLen := buf[0] & 0x0F
	code := buf[1]
	msgID := binary.BigEndian.Uint16(buf[2:4])

	pos := 4
	if len(buf) < pos+int(tokenLen) {
		return nil, fmt.Errorf("coap: truncated token")
	}
	token := append([]byte(nil), buf[pos:pos+int(tokenLen)]...)
	pos += int(tokenLen)

	var options []Option
	optionNumber := 0
	for pos < len(buf) {
		if buf[pos] == 0xFF {
			pos++
			break
		}
		deltaNibble := int(buf[pos] >> 4)
		lengthNibble := int(buf[pos] & 0x0F)
		pos++

		var delta, length int
		var err error
		delta, pos, err = extendOptionField(buf, pos, deltaNibble)
		if err != nil {
			return nil, err
		}
		length, pos, err = extendOptionField(buf, pos, lengthNibble)
		if err != nil {
			return nil, err
		}
		if len(buf) < pos+length {
			return nil, fmt.Errorf("coap: truncated option value")
		}
		optionNumber += delta
		options = append(options, Option{Number: optionNumber, Value: append([]byte(nil), buf[pos:pos+length]...)})
		pos += length
	}

	payload := buf[pos:]
	return &Message{
		Version: version, Type: msgType, TokenLen: tokenLen, Code: code,
		MessageID: msgID, Token: token, Options: options, Payload: payload,
	}, nil
}

// extendOptionField resolves the 13/14 nibble escape rule for option
// delta/length fields.
func extendOptionField(buf []byte, pos, nibble int) (value, newPos int, err error) {
	switch nibble {
	case 13:
		if len(buf) < pos+1 {
			return 0, pos, fmt.Errorf("coap: truncated extended option field (8-bit)")
		}
		return int(buf[pos]) + 13, pos + 1, nil
	case 14:
		if len(buf) < pos+2 {
			return 0, pos, fmt.Errorf("coap: truncated extended option field (16-bit)")
		}
		return int(binary.BigEndian.Uint16(buf[pos:pos+2])) + 269, pos + 2, nil
	case 15:
		return 0, pos, fmt.Errorf("coap: reserved option nibble 15")
	default:
		return nibble, pos, nil
	}
}

// Encode renders m back to wire bytes. Options must be sorted in
// ascending option-number order; Encode enforces this itself so callers
// never emit an invalid ordering by mistake.
func Encode(m Message) []byte {
	sortOptionsAscending(m.Options)

	header := (m.Version&0x03)<<6 | (m.Type&0x03)<<4 | byte(len(m.Token))&0x0F
	out := []byte{header, m.Code, byte(m.MessageID >> 8), byte(m.MessageID)}
	out = append(out, m.Token...)

	prevNumber := 0
	for _, o := range m.Options {
		delta := o.Number - prevNumber
		prevNumber = o.Number
		out = append(out, encodeOption(delta, o.Value)...)
	}

	if len(m.Payload) > 0 {
		out = append(out, 0xFF)
		out = append(out, m.Payload...)
	}
	return out
}

func encodeOption(delta int, value []byte) []byte {
	deltaNibble, deltaExt := nibbleFor(delta)
	lengthNibble, lengthExt := nibbleFor(len(value))

	out := []byte{byte(deltaNibble<<4 | lengthNibble)}
	out = append(out, deltaExt...)
	out = append(out, lengthExt...)
	out = append(out, value...)
	return out
}

func nibbleFor(n int) (nibble int, ext []byte) {
	switch {
	case n < 13:
		return n, nil
	case n < 269:
		return 13, []byte{byte(n - 13)}
	default:
		ext = make([]byte, 2)
		binary.BigEndian.PutUint16(ext, uint16(n-269))
		return 14, ext
	}
}

func sortOptionsAscending(opts []Option) {
	for i := 1; i < len(opts); i++ {
		for j := i; j > 0 && opts[j-1].Number > opts[j].Number; j-- {
			opts[j-1], opts[j] = opts[j], opts[j-1]
		}
	}
}

// ObserveOption builds an Observe option with the given sequence value.
func ObserveOption(seq uint32) Option {
	return Option{Number: OptionObserve, Value: encodeUint(seq)}
}

// ContentFormatOption builds a Content-Format option.
func ContentFormatOption(format uint32) Option {
	return Option{Number: OptionContentFormat, Value: encodeUint(format)}
}

// URIPathOptions splits path on "/" into one Uri-Path option per segment.
func URIPathOptions(path string) []Option {
	var opts []Option
	seg := ""
	for _, r := range path {
		if r == '/' {
			if seg != "" {
				opts = append(opts, Option{Number: OptionURIPath, Value: []byte(seg)})
			}
			seg = ""
			continue
		}
		seg += string(r)
	}
	if seg != "" {
		opts = append(opts, Option{Number: OptionURIPath, Value: []byte(seg)})
	}
	return opts
}
