package opcua

import "testing"

func buildHello(version, recv, send, maxMsg, maxChunk uint32) []byte {
	h := Hello{Version: version, ReceiveBufSize: recv, SendBufSize: send, MaxMessageSize: maxMsg, MaxChunkCount: maxChunk}
	body := make([]byte, 24)
	putUint32LE(body[0:4], h.Version)
	putUint32LE(body[4:8], h.ReceiveBufSize)
	putUint32LE(body[8:12], h.SendBufSize)
	putUint32LE(body[12:16], h.MaxMessageSize)
	putUint32LE(body[16:20], h.MaxChunkCount)
	putUint32LE(body[20:24], 0xFFFFFFFF) // null endpoint URL string
	out := make([]byte, headerSize, headerSize+len(body))
	copy(out[0:3], MsgHello)
	out[3] = 'F'
	putUint32LE(out[4:8], uint32(headerSize+len(body)))
	return append(out, body...)
}

func putUint32LE(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

func TestFrameLengthParsesHeader(t *testing.T) {
	frame := buildHello(0, 60000, 60000, 0, 0)
	msgType, bodyLen, err := FrameLength(frame[:headerSize])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != MsgHello {
		t.Fatalf("expected HEL, got %q", msgType)
	}
	if bodyLen != len(frame)-headerSize {
		t.Fatalf("expected body length %d, got %d", len(frame)-headerSize, bodyLen)
	}
}

func TestFrameLengthRejectsShortHeader(t *testing.T) {
	if _, _, err := FrameLength([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short header")
	}
}

func TestParseHelloDecodesFixedFields(t *testing.T) {
	frame := buildHello(0, 60000, 70000, 4194304, 0)
	hello, err := ParseHello(frame[headerSize:])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hello.ReceiveBufSize != 60000 || hello.SendBufSize != 70000 || hello.MaxMessageSize != 4194304 {
		t.Fatalf("unexpected hello fields: %+v", hello)
	}
	if hello.EndpointURL != "" {
		t.Fatalf("expected empty endpoint URL for null string, got %q", hello.EndpointURL)
	}
}

func TestParseHelloRejectsShortBody(t *testing.T) {
	if _, err := ParseHello([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated HEL body")
	}
}

func TestEncodeAcknowledgeRoundTrip(t *testing.T) {
	ack := EncodeAcknowledge(Acknowledge{Version: 0, ReceiveBufSize: 65536, SendBufSize: 65536, MaxMessageSize: 0, MaxChunkCount: 0})
	msgType, bodyLen, err := FrameLength(ack[:headerSize])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != MsgAcknowledge {
		t.Fatalf("expected ACK, got %q", msgType)
	}
	if bodyLen != 20 {
		t.Fatalf("expected 20-byte ACK body, got %d", bodyLen)
	}
}

func TestEncodeErrorRoundTrip(t *testing.T) {
	errFrame := EncodeError(ErrorMessage{Code: 0x80010000, Reason: "BadTcpMessageTypeInvalid"})
	msgType, bodyLen, err := FrameLength(errFrame[:headerSize])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != MsgError {
		t.Fatalf("expected ERR, got %q", msgType)
	}
	if bodyLen != 8+len("BadTcpMessageTypeInvalid") {
		t.Fatalf("unexpected ERR body length %d", bodyLen)
	}
}
