// Package bacnet implements a BACnet/IP subset: BVLC/NPDU/APDU wire codec,
// a per-device object table, and a UDP server. BACnet/IP request-response
// doesn't need the unsolicited-push plumbing CoAP's Observe does, so the
// shared transport/udp Server/Handler fits unmodified.
package bacnet

import (
	"encoding/binary"
	"fmt"
	"math"
)

// BVLC function codes this simulator uses.
const (
	BVLCTypeIP                byte = 0x81
	BVLCOriginalUnicastNPDU   byte = 0x0A
	BVLCOriginalBroadcastNPDU byte = 0x0B
)

// APDU types (high nibble of the first APDU byte).
const (
	APDUUnconfirmedRequest byte = 0x10
	APDUConfirmedRequest   byte = 0x00
	APDUComplexACK         byte = 0x30
	APDUSimpleACK          byte = 0x20
)

// Service choice codes.
const (
	ServiceWhoIs           byte = 0x08
	ServiceIAm             byte = 0x00
	ServiceWhoHas          byte = 0x07
	ServiceIHave           byte = 0x01
	ServiceReadProperty    byte = 0x0C
	ServiceReadPropertyACK byte = 0x0C
	ServiceWriteProperty   byte = 0x0F
)

// Application tags for the primitive encodings this simulator supports.
const (
	TagReal     byte = 0x44
	TagUnsigned byte = 0x22
	TagNull     byte = 0x7E
)

// Property identifiers used by ReadProperty/WriteProperty.
const (
	PropertyObjectName   uint32 = 77
	PropertyPresentValue uint32 = 85
)

// Frame is one parsed BVLC+NPDU+APDU message.
type Frame struct {
	BVLCFunction byte
	APDU         []byte // everything after the NPDU version/control bytes and any routing fields
}

// Parse decodes a BVLC/NPDU header and returns the BVLC function and the
// APDU bytes: BVLC (type=0x81, function, length u16), then NPDU
// (version=1, control, ...), then APDU.
func Parse(buf []byte) (Frame, error) {
	if len(buf) < 6 {
		return Frame{}, fmt.Errorf("bacnet: frame shorter than BVLC+NPDU header")
	}
	if buf[0] != BVLCTypeIP {
		return Frame{}, fmt.Errorf("bacnet: unexpected BVLC type %#x", buf[0])
	}
	function := buf[1]
	length := binary.BigEndian.Uint16(buf[2:4])
	if int(length) != len(buf) {
		return Frame{}, fmt.Errorf("bacnet: BVLC length %d does not match frame size %d", length, len(buf))
	}

	npdu := buf[4:]
	if len(npdu) < 2 {
		return Frame{}, fmt.Errorf("bacnet: truncated NPDU")
	}
	control := npdu[1]
	pos := 2

	// Destination network/address (bit 5) and the matching hop count.
	if control&0x20 != 0 {
		newPos, ok := skipNetworkAddress(npdu, pos)
		if !ok {
			return Frame{}, fmt.Errorf("bacnet: truncated NPDU destination")
		}
		pos = newPos + 1 // + hop count byte
	}
	// Source network/address (bit 3).
	if control&0x08 != 0 {
		newPos, ok := skipNetworkAddress(npdu, pos)
		if !ok {
			return Frame{}, fmt.Errorf("bacnet: truncated NPDU source")
		}
		pos = newPos
	}

	if pos > len(npdu) {
		return Frame{}, fmt.Errorf("bacnet: NPDU control bits overran frame")
	}
	return Frame{BVLCFunction: function, APDU: npdu[pos:]}, nil
}

// skipNetworkAddress advances past one NPDU network-number + length-
// prefixed MAC address block (2-byte network number, 1-byte length,
// length bytes of address).
func skipNetworkAddress(npdu []byte, pos int) (int, bool) {
	if len(npdu) < pos+3 {
		return pos, false
	}
	addrLen := int(npdu[pos+2])
	pos += 3 + addrLen
	if pos > len(npdu) {
		return pos, false
	}
	return pos, true
}

// Encode wraps apdu in a fresh BVLC+NPDU header addressed back to the
// peer (spec's minimal NPDU: version=1, control=0, no routing fields).
func Encode(function byte, apdu []byte) []byte {
	npdu := append([]byte{0x01, 0x00}, apdu...)
	total := 4 + len(npdu)
	out := make([]byte, 4, total)
	out[0] = BVLCTypeIP
	out[1] = function
	binary.BigEndian.PutUint16(out[2:4], uint16(total))
	return append(out, npdu...)
}

// EncodeReal encodes a REAL application value: tag 0x44 + IEEE-754 BE.
func EncodeReal(v float32) []byte {
	out := make([]byte, 5)
	out[0] = TagReal
	binary.BigEndian.PutUint32(out[1:], math.Float32bits(v))
	return out
}

// EncodeUnsigned encodes an Unsigned Integer application value: tag 0x22
// + big-endian 32-bit integer.
func EncodeUnsigned(v uint32) []byte {
	out := make([]byte, 5)
	out[0] = TagUnsigned
	binary.BigEndian.PutUint32(out[1:], v)
	return out
}

// EncodeNull encodes the Null application value: tag 0x7E, no payload.
func EncodeNull() []byte {
	return []byte{TagNull}
}

// DecodeValue decodes one of the three application-tagged primitives this
// simulator supports, returning a float64, uint32, or nil respectively.
func DecodeValue(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("bacnet: empty value")
	}
	switch data[0] {
	case TagReal:
		if len(data) < 5 {
			return nil, fmt.Errorf("bacnet: truncated REAL value")
		}
		return float64(math.Float32frombits(binary.BigEndian.Uint32(data[1:5]))), nil
	case TagUnsigned:
		if len(data) < 5 {
			return nil, fmt.Errorf("bacnet: truncated unsigned value")
		}
		return binary.BigEndian.Uint32(data[1:5]), nil
	case TagNull:
		return nil, nil
	default:
		return nil, fmt.Errorf("bacnet: unsupported application tag %#x", data[0])
	}
}
