package bacnet

import (
	"encoding/binary"
)

// Dispatch applies one parsed Frame against table and returns the
// response BVLC+NPDU+APDU bytes, or nil if no reply is warranted (e.g. a
// Who-Is outside this device's addressed range).
func Dispatch(table *Table, req Frame) []byte {
	if len(req.APDU) == 0 {
		return nil
	}
	service := serviceChoice(req.APDU)

	switch service {
	case ServiceWhoIs:
		return dispatchWhoIs(table, req.APDU)
	case ServiceWhoHas:
		return dispatchIAm(table)
	case ServiceReadProperty:
		return dispatchReadProperty(table, req.APDU)
	case ServiceWriteProperty:
		return dispatchWriteProperty(table, req.APDU)
	default:
		return nil
	}
}

// serviceChoice extracts the service-choice byte, which follows the
// 1-byte APDU-type/PDU-flags byte for both confirmed and unconfirmed
// requests.
func serviceChoice(apdu []byte) byte {
	if len(apdu) < 2 {
		return 0
	}
	return apdu[1]
}

func dispatchWhoIs(table *Table, apdu []byte) []byte {
	device, ok := table.First()
	if !ok {
		return nil
	}
	// Optional device-id-low/device-id-high range narrows which device
	// instances should respond; a bare Who-Is (no range) always gets a
	// reply (original_source bacnet.py _handle_who_is).
	if len(apdu) >= 10 {
		low := binary.BigEndian.Uint32(apdu[2:6])
		high := binary.BigEndian.Uint32(apdu[6:10])
		if device.DeviceID < low || device.DeviceID > high {
			return nil
		}
	}
	return dispatchIAm(table)
}

func dispatchIAm(table *Table) []byte {
	device, ok := table.First()
	if !ok {
		return nil
	}
	apdu := []byte{APDUUnconfirmedRequest, ServiceIAm}
	apdu = append(apdu, EncodeUnsigned(device.DeviceID)...)
	apdu = append(apdu, EncodeUnsigned(device.VendorID)...)
	return Encode(BVLCOriginalUnicastNPDU, apdu)
}

// dispatchReadProperty decodes a minimal ReadProperty request — invoke id
// (1 byte, ignored), object instance (u32), property id (u16); no object
// type is carried — and replies with a Complex-ACK carrying the object's
// present value.
func dispatchReadProperty(table *Table, apdu []byte) []byte {
	if len(apdu) < 9 {
		return nil
	}
	objInstance := binary.BigEndian.Uint32(apdu[3:7])
	propertyID := binary.BigEndian.Uint16(apdu[7:9])

	device, ok := table.First()
	if !ok {
		return nil
	}
	obj, ok := device.Object(objInstance)
	if !ok {
		return nil
	}

	resp := []byte{APDUComplexACK, ServiceReadPropertyACK}
	resp = append(resp, EncodeUnsigned(objInstance)...)
	resp = append(resp, EncodeUnsigned(uint32(propertyID))...)
	resp = append(resp, encodePropertyValue(obj, uint32(propertyID))...)
	return Encode(BVLCOriginalUnicastNPDU, resp)
}

func encodePropertyValue(obj *Object, propertyID uint32) []byte {
	if propertyID == PropertyObjectName {
		return EncodeNull() // object names aren't one of this simulator's three supported primitive encodings
	}
	switch v := obj.PresentValue.(type) {
	case float64:
		return EncodeReal(float32(v))
	case uint32:
		return EncodeUnsigned(v)
	default:
		return EncodeNull()
	}
}

// dispatchWriteProperty always returns a Simple-ACK (original_source
// bacnet.py _handle_write_property is itself an unconditional simulated
// success) after applying the decoded value to the addressed object when
// object-instance/value fields are present.
func dispatchWriteProperty(table *Table, apdu []byte) []byte {
	if len(apdu) >= 9 {
		objInstance := binary.BigEndian.Uint32(apdu[3:7])
		if device, ok := table.First(); ok {
			if v, err := DecodeValue(apdu[9:]); err == nil {
				device.SetPresentValue(objInstance, v)
			}
		}
	}
	resp := []byte{APDUSimpleACK, ServiceWriteProperty}
	return Encode(BVLCOriginalUnicastNPDU, resp)
}
