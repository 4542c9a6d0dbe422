package bacnet

import "testing"

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	apdu := []byte{APDUUnconfirmedRequest, ServiceIAm}
	buf := Encode(BVLCOriginalUnicastNPDU, apdu)

	frame, err := Parse(buf)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if frame.BVLCFunction != BVLCOriginalUnicastNPDU {
		t.Fatalf("expected unicast function, got %#x", frame.BVLCFunction)
	}
	if len(frame.APDU) != len(apdu) || frame.APDU[0] != apdu[0] || frame.APDU[1] != apdu[1] {
		t.Fatalf("apdu mismatch: %v", frame.APDU)
	}
}

func TestParseRejectsWrongBVLCType(t *testing.T) {
	buf := Encode(BVLCOriginalUnicastNPDU, []byte{0x00})
	buf[0] = 0x82
	if _, err := Parse(buf); err == nil {
		t.Fatal("expected error for non-BACnet/IP BVLC type")
	}
}

func TestParseRejectsLengthMismatch(t *testing.T) {
	buf := Encode(BVLCOriginalUnicastNPDU, []byte{0x00})
	buf = append(buf, 0xFF) // trailing byte not reflected in the BVLC length field
	if _, err := Parse(buf); err == nil {
		t.Fatal("expected error for BVLC length mismatch")
	}
}

func TestEncodeRealRoundTrip(t *testing.T) {
	encoded := EncodeReal(21.5)
	if encoded[0] != TagReal {
		t.Fatalf("expected REAL tag, got %#x", encoded[0])
	}
	v, err := DecodeValue(encoded)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	f, ok := v.(float64)
	if !ok || f < 21.49 || f > 21.51 {
		t.Fatalf("expected ~21.5, got %v", v)
	}
}

func TestEncodeUnsignedRoundTrip(t *testing.T) {
	encoded := EncodeUnsigned(42)
	v, err := DecodeValue(encoded)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	u, ok := v.(uint32)
	if !ok || u != 42 {
		t.Fatalf("expected 42, got %v", v)
	}
}

func TestEncodeNullRoundTrip(t *testing.T) {
	encoded := EncodeNull()
	if encoded[0] != TagNull {
		t.Fatalf("expected null tag, got %#x", encoded[0])
	}
	v, err := DecodeValue(encoded)
	if err != nil || v != nil {
		t.Fatalf("expected nil value, got %v err=%v", v, err)
	}
}

func TestParseNPDUWithDestinationAddress(t *testing.T) {
	// control byte 0x20: destination network/address present.
	npdu := []byte{0x01, 0x20, 0x00, 0x01, 0x01, 0xAA, 0x05 /* hop count */}
	apdu := []byte{APDUUnconfirmedRequest, ServiceWhoIs}
	npdu = append(npdu, apdu...)
	buf := make([]byte, 4, 4+len(npdu))
	buf[0] = BVLCTypeIP
	buf[1] = BVLCOriginalUnicastNPDU
	buf[2] = 0
	buf[3] = byte(4 + len(npdu))
	buf = append(buf, npdu...)

	frame, err := Parse(buf)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if len(frame.APDU) != 2 || frame.APDU[1] != ServiceWhoIs {
		t.Fatalf("expected APDU to start after destination block, got %v", frame.APDU)
	}
}
