package modbus

import (
	"encoding/binary"
	"testing"
)

func addrQtyPDU(addr, qty uint16) []byte {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], addr)
	binary.BigEndian.PutUint16(data[2:4], qty)
	return data
}

func TestDispatchUnknownUnitReturnsGatewayException(t *testing.T) {
	table := NewTable()
	req := Frame{TransactionID: 1, UnitID: 9, FunctionCode: FuncReadHoldingRegisters, Data: addrQtyPDU(0, 1)}
	resp := Dispatch(table, req)
	decoded, _ := Parse(resp)
	if decoded.FunctionCode != FuncReadHoldingRegisters|0x80 || decoded.Data[0] != ExcGatewayTargetFailed {
		t.Fatalf("expected gateway-target-failed exception, got %+v", decoded)
	}
}

func TestDispatchUnknownFunctionCode(t *testing.T) {
	table := NewTable()
	table.Ensure(1)
	req := Frame{TransactionID: 1, UnitID: 1, FunctionCode: 0x63}
	resp := Dispatch(table, req)
	decoded, _ := Parse(resp)
	if decoded.Data[0] != ExcIllegalFunction {
		t.Fatalf("expected illegal-function exception, got %d", decoded.Data[0])
	}
}

func TestDispatchReadHoldingRegisters(t *testing.T) {
	table := NewTable()
	device := table.Ensure(1)
	device.WriteHoldingRegister(10, 1234)
	device.WriteHoldingRegister(11, 5678)

	req := Frame{TransactionID: 1, UnitID: 1, FunctionCode: FuncReadHoldingRegisters, Data: addrQtyPDU(10, 2)}
	resp := Dispatch(table, req)
	decoded, _ := Parse(resp)
	if decoded.Data[0] != 4 {
		t.Fatalf("expected byte count 4, got %d", decoded.Data[0])
	}
	if binary.BigEndian.Uint16(decoded.Data[1:3]) != 1234 || binary.BigEndian.Uint16(decoded.Data[3:5]) != 5678 {
		t.Fatalf("unexpected register values in response: %+v", decoded)
	}
}

func TestDispatchReadRegistersTooManyIsException(t *testing.T) {
	table := NewTable()
	table.Ensure(1)
	req := Frame{TransactionID: 1, UnitID: 1, FunctionCode: FuncReadHoldingRegisters, Data: addrQtyPDU(0, 200)}
	resp := Dispatch(table, req)
	decoded, _ := Parse(resp)
	if decoded.Data[0] != ExcIllegalDataValue {
		t.Fatalf("expected illegal-data-value exception, got %d", decoded.Data[0])
	}
}

func TestDispatchWriteSingleCoilRoundTrip(t *testing.T) {
	table := NewTable()
	device := table.Ensure(1)

	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], 5)
	binary.BigEndian.PutUint16(data[2:4], 0xFF00)
	req := Frame{TransactionID: 1, UnitID: 1, FunctionCode: FuncWriteSingleCoil, Data: data}
	resp := Dispatch(table, req)
	decoded, _ := Parse(resp)
	if decoded.FunctionCode != FuncWriteSingleCoil {
		t.Fatalf("expected echoed function code, got %#x", decoded.FunctionCode)
	}
	if !device.ReadCoils(5, 1)[0] {
		t.Fatal("expected coil 5 to be set")
	}
}

func TestDispatchWriteMultipleCoilsAndReadBack(t *testing.T) {
	table := NewTable()
	device := table.Ensure(1)

	pdu := make([]byte, 0, 9)
	addr := make([]byte, 4)
	binary.BigEndian.PutUint16(addr[0:2], 0)
	binary.BigEndian.PutUint16(addr[2:4], 9)
	pdu = append(pdu, addr...)
	values := []bool{true, false, true, true, false, false, false, false, true}
	packed := packBits(values)
	pdu = append(pdu, byte(len(packed)))
	pdu = append(pdu, packed...)

	req := Frame{TransactionID: 1, UnitID: 1, FunctionCode: FuncWriteMultipleCoils, Data: pdu}
	resp := Dispatch(table, req)
	decoded, _ := Parse(resp)
	if decoded.FunctionCode != FuncWriteMultipleCoils {
		t.Fatalf("expected echoed function code, got %#x", decoded.FunctionCode)
	}

	got := device.ReadCoils(0, 9)
	for i, v := range values {
		if got[i] != v {
			t.Fatalf("coil %d: expected %v, got %v", i, v, got[i])
		}
	}
}

func TestDispatchDiagnosticsEcho(t *testing.T) {
	table := NewTable()
	table.Ensure(1)
	data := []byte{0, 0, 0xAB, 0xCD}
	req := Frame{TransactionID: 1, UnitID: 1, FunctionCode: FuncDiagnostics, Data: data}
	resp := Dispatch(table, req)
	decoded, _ := Parse(resp)
	if decoded.Data[2] != 0xAB || decoded.Data[3] != 0xCD {
		t.Fatalf("expected diagnostics echo, got %+v", decoded.Data)
	}
}
