package modbus

import "encoding/binary"

// Dispatch applies one parsed request Frame against table and returns the
// complete response frame, already passed through Encode (MBAP header,
// unit id, function code, and any exception encoding folded in), ready to
// write to the connection.
func Dispatch(table *Table, req Frame) []byte {
	device, ok := table.Get(req.UnitID)
	if !ok {
		// Unknown unit id: spec's tie-break rule routes this to the
		// gateway-target-failed exception rather than illegal-function.
		return EncodeException(req, ExcGatewayTargetFailed)
	}

	switch req.FunctionCode {
	case FuncReadCoils:
		return dispatchReadBits(req, device.ReadCoils)
	case FuncReadDiscreteInputs:
		return dispatchReadBits(req, device.ReadDiscreteInputs)
	case FuncReadHoldingRegisters:
		return dispatchReadRegisters(req, device.ReadHoldingRegisters)
	case FuncReadInputRegisters:
		return dispatchReadRegisters(req, device.ReadInputRegisters)
	case FuncWriteSingleCoil:
		return dispatchWriteSingleCoil(req, device)
	case FuncWriteSingleRegister:
		return dispatchWriteSingleRegister(req, device)
	case FuncWriteMultipleCoils:
		return dispatchWriteMultipleCoils(req, device)
	case FuncWriteMultipleRegisters:
		return dispatchWriteMultipleRegisters(req, device)
	case FuncDiagnostics:
		return dispatchDiagnostics(req)
	default:
		return EncodeException(req, ExcIllegalFunction)
	}
}

func dispatchReadBits(req Frame, read func(addr, qty uint16) []bool) []byte {
	addr, qty, ok := parseAddrQty(req.Data)
	if !ok || qty == 0 || qty > maxCoilsPerRequest {
		return EncodeException(req, ExcIllegalDataValue)
	}
	values := read(addr, qty)
	packed := packBits(values)
	data := append([]byte{byte(len(packed))}, packed...)
	return Encode(Frame{TransactionID: req.TransactionID, UnitID: req.UnitID, FunctionCode: req.FunctionCode, Data: data})
}

func dispatchReadRegisters(req Frame, read func(addr, qty uint16) []uint16) []byte {
	addr, qty, ok := parseAddrQty(req.Data)
	if !ok || qty == 0 || qty > maxRegistersPerRequest {
		return EncodeException(req, ExcIllegalDataValue)
	}
	values := read(addr, qty)
	data := make([]byte, 1+2*len(values))
	data[0] = byte(2 * len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(data[1+2*i:], v)
	}
	return Encode(Frame{TransactionID: req.TransactionID, UnitID: req.UnitID, FunctionCode: req.FunctionCode, Data: data})
}

func dispatchWriteSingleCoil(req Frame, device *Device) []byte {
	if len(req.Data) < 4 {
		return EncodeException(req, ExcIllegalDataValue)
	}
	addr := binary.BigEndian.Uint16(req.Data[0:2])
	raw := binary.BigEndian.Uint16(req.Data[2:4])
	if raw != 0x0000 && raw != 0xFF00 {
		return EncodeException(req, ExcIllegalDataValue)
	}
	device.WriteCoil(addr, raw == 0xFF00)
	return Encode(Frame{TransactionID: req.TransactionID, UnitID: req.UnitID, FunctionCode: req.FunctionCode, Data: req.Data[:4]})
}

func dispatchWriteSingleRegister(req Frame, device *Device) []byte {
	if len(req.Data) < 4 {
		return EncodeException(req, ExcIllegalDataValue)
	}
	addr := binary.BigEndian.Uint16(req.Data[0:2])
	value := binary.BigEndian.Uint16(req.Data[2:4])
	device.WriteHoldingRegister(addr, value)
	return Encode(Frame{TransactionID: req.TransactionID, UnitID: req.UnitID, FunctionCode: req.FunctionCode, Data: req.Data[:4]})
}

func dispatchWriteMultipleCoils(req Frame, device *Device) []byte {
	addr, qty, ok := parseAddrQty(req.Data)
	if !ok || qty == 0 || qty > maxCoilsPerRequest || len(req.Data) < 5 {
		return EncodeException(req, ExcIllegalDataValue)
	}
	byteCount := int(req.Data[4])
	if len(req.Data) < 5+byteCount {
		return EncodeException(req, ExcIllegalDataValue)
	}
	values := unpackBits(req.Data[5:5+byteCount], int(qty))
	device.WriteCoils(addr, values)
	return Encode(Frame{TransactionID: req.TransactionID, UnitID: req.UnitID, FunctionCode: req.FunctionCode, Data: req.Data[:4]})
}

func dispatchWriteMultipleRegisters(req Frame, device *Device) []byte {
	addr, qty, ok := parseAddrQty(req.Data)
	if !ok || qty == 0 || qty > maxRegistersPerRequest || len(req.Data) < 5 {
		return EncodeException(req, ExcIllegalDataValue)
	}
	byteCount := int(req.Data[4])
	if len(req.Data) < 5+byteCount || byteCount != 2*int(qty) {
		return EncodeException(req, ExcIllegalDataValue)
	}
	values := make([]uint16, qty)
	for i := range values {
		values[i] = binary.BigEndian.Uint16(req.Data[5+2*i:])
	}
	device.WriteHoldingRegisters(addr, values)
	return Encode(Frame{TransactionID: req.TransactionID, UnitID: req.UnitID, FunctionCode: req.FunctionCode, Data: req.Data[:4]})
}

// dispatchDiagnostics supports only sub-function 0, return query data
// (i.e. echo).
func dispatchDiagnostics(req Frame) []byte {
	if len(req.Data) < 2 {
		return EncodeException(req, ExcIllegalDataValue)
	}
	subFunc := binary.BigEndian.Uint16(req.Data[0:2])
	if subFunc != 0 {
		return EncodeException(req, ExcIllegalFunction)
	}
	return Encode(Frame{TransactionID: req.TransactionID, UnitID: req.UnitID, FunctionCode: req.FunctionCode, Data: req.Data})
}

func parseAddrQty(data []byte) (addr, qty uint16, ok bool) {
	if len(data) < 4 {
		return 0, 0, false
	}
	return binary.BigEndian.Uint16(data[0:2]), binary.BigEndian.Uint16(data[2:4]), true
}
