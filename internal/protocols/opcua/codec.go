// Package opcua implements the OPC UA binary TCP handshake only: HEL/ACK/ERR
// framing. Full SecureChannel/Session establishment is out of scope — the
// simulator's purpose is satisfied by a reply that negotiates buffer
// sizes at the framing layer, the same scope the Modbus and raw-TCP
// simulators cover at their own framing layers.
package opcua

import (
	"encoding/binary"
	"fmt"
)

// Message types, encoded as the first 3 ASCII bytes of the 8-byte header.
const (
	MsgHello       = "HEL"
	MsgAcknowledge = "ACK"
	MsgError       = "ERR"
	chunkTypeFinal = 'F'
	headerSize     = 8
)

// Hello is the client's opening handshake message: version,
// receive-buffer-size, send-buffer-size, max-message-size, and
// max-chunk-count.
type Hello struct {
	Version        uint32
	ReceiveBufSize uint32
	SendBufSize    uint32
	MaxMessageSize uint32
	MaxChunkCount  uint32
	EndpointURL    string
}

// Acknowledge is the server's handshake reply, echoing negotiated values.
type Acknowledge struct {
	Version        uint32
	ReceiveBufSize uint32
	SendBufSize    uint32
	MaxMessageSize uint32
	MaxChunkCount  uint32
}

// ErrorMessage is sent in place of an Acknowledge when the Hello cannot be
// honored (e.g. truncated frame).
type ErrorMessage struct {
	Code   uint32
	Reason string
}

// ParseHello decodes a HEL chunk body (the bytes following the 8-byte
// header). The body is: version, receive-buffer-size, send-buffer-size,
// max-message-size, max-chunk-count (all u32 LE, per OPC UA Part 6's
// little-endian binary encoding), followed by a length-prefixed endpoint
// URL string.
func ParseHello(body []byte) (Hello, error) {
	if len(body) < 20 {
		return Hello{}, fmt.Errorf("opcua: HEL body shorter than fixed fields")
	}
	h := Hello{
		Version:        binary.LittleEndian.Uint32(body[0:4]),
		ReceiveBufSize: binary.LittleEndian.Uint32(body[4:8]),
		SendBufSize:    binary.LittleEndian.Uint32(body[8:12]),
		MaxMessageSize: binary.LittleEndian.Uint32(body[12:16]),
		MaxChunkCount:  binary.LittleEndian.Uint32(body[16:20]),
	}
	if len(body) >= 24 {
		strLen := binary.LittleEndian.Uint32(body[20:24])
		if strLen != 0xFFFFFFFF && int(24+strLen) <= len(body) {
			h.EndpointURL = string(body[24 : 24+strLen])
		}
	}
	return h, nil
}

// FrameLength decodes an 8-byte chunk header into its message type and the
// length of the body that follows: the server reads the fixed header
// first, then knows exactly how many more bytes to read for the body.
func FrameLength(header []byte) (msgType string, bodyLen int, err error) {
	if len(header) < headerSize {
		return "", 0, fmt.Errorf("opcua: header shorter than %d bytes", headerSize)
	}
	msgType = string(header[0:3])
	total := binary.LittleEndian.Uint32(header[4:8])
	if total < headerSize {
		return "", 0, fmt.Errorf("opcua: chunk size %d smaller than header", total)
	}
	return msgType, int(total) - headerSize, nil
}

// EncodeAcknowledge builds a full ACK chunk (header + body).
func EncodeAcknowledge(a Acknowledge) []byte {
	body := make([]byte, 20)
	binary.LittleEndian.PutUint32(body[0:4], a.Version)
	binary.LittleEndian.PutUint32(body[4:8], a.ReceiveBufSize)
	binary.LittleEndian.PutUint32(body[8:12], a.SendBufSize)
	binary.LittleEndian.PutUint32(body[12:16], a.MaxMessageSize)
	binary.LittleEndian.PutUint32(body[16:20], a.MaxChunkCount)
	return encodeChunk(MsgAcknowledge, body)
}

// EncodeError builds a full ERR chunk (header + body: error code + a
// length-prefixed ASCII reason string).
func EncodeError(e ErrorMessage) []byte {
	reason := []byte(e.Reason)
	body := make([]byte, 8+len(reason))
	binary.LittleEndian.PutUint32(body[0:4], e.Code)
	binary.LittleEndian.PutUint32(body[4:8], uint32(len(reason)))
	copy(body[8:], reason)
	return encodeChunk(MsgError, body)
}

func encodeChunk(msgType string, body []byte) []byte {
	out := make([]byte, headerSize, headerSize+len(body))
	copy(out[0:3], msgType)
	out[3] = chunkTypeFinal
	binary.LittleEndian.PutUint32(out[4:8], uint32(headerSize+len(body)))
	return append(out, body...)
}
