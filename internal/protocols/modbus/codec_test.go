package modbus

import (
	"encoding/binary"
	"testing"
)

func TestParseMBAPLength(t *testing.T) {
	frame := Encode(Frame{TransactionID: 1, UnitID: 1, FunctionCode: FuncReadHoldingRegisters, Data: []byte{0, 0, 0, 1}})
	if got := ParseMBAPLength(frame); got != len(frame) {
		t.Fatalf("expected frame length %d, got %d", len(frame), got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := Frame{TransactionID: 42, UnitID: 7, FunctionCode: FuncReadCoils, Data: []byte{0, 10, 0, 3}}
	encoded := Encode(f)
	decoded, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if decoded.TransactionID != 42 || decoded.UnitID != 7 || decoded.FunctionCode != FuncReadCoils {
		t.Fatalf("unexpected decoded frame: %+v", decoded)
	}
}

func TestPackUnpackBits(t *testing.T) {
	values := []bool{true, false, true, true, false, false, false, false, true}
	packed := packBits(values)
	if len(packed) != 2 {
		t.Fatalf("expected ceil(9/8)=2 bytes, got %d", len(packed))
	}
	unpacked := unpackBits(packed, len(values))
	for i, v := range values {
		if unpacked[i] != v {
			t.Fatalf("bit %d: expected %v, got %v", i, v, unpacked[i])
		}
	}
}

func TestExceptionEncoding(t *testing.T) {
	req := Frame{TransactionID: 1, UnitID: 1, FunctionCode: FuncReadHoldingRegisters}
	encoded := EncodeException(req, ExcIllegalDataAddress)
	decoded, err := Parse(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.FunctionCode != FuncReadHoldingRegisters|0x80 {
		t.Fatalf("expected exception bit set, got %#x", decoded.FunctionCode)
	}
	if decoded.Data[0] != ExcIllegalDataAddress {
		t.Fatalf("expected exception code %d, got %d", ExcIllegalDataAddress, decoded.Data[0])
	}
}

func TestParseRejectsNonZeroProtocolID(t *testing.T) {
	buf := make([]byte, 9)
	binary.BigEndian.PutUint16(buf[2:4], 1) // protocol id != 0
	binary.BigEndian.PutUint16(buf[4:6], 2)
	if _, err := Parse(buf); err == nil {
		t.Fatal("expected error for non-zero protocol id")
	}
}
