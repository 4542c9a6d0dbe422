package coap

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msg := Message{
		Version:   1,
		Type:      TypeConfirmable,
		Code:      CodeGET,
		MessageID: 1234,
		Token:     []byte{0xAB, 0xCD},
		Options:   append(URIPathOptions("sensors/temp"), ContentFormatOption(ContentFormatJSON)),
	}
	encoded := Encode(msg)
	decoded, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if decoded.Code != CodeGET || decoded.MessageID != 1234 {
		t.Fatalf("unexpected decoded message: %+v", decoded)
	}
	if decoded.URIPath() != "sensors/temp" {
		t.Fatalf("expected path sensors/temp, got %q", decoded.URIPath())
	}
}

func TestOptionsEncodedInAscendingOrder(t *testing.T) {
	msg := Message{
		Version: 1, Type: TypeConfirmable, Code: CodeGET, MessageID: 1,
		Options: []Option{ContentFormatOption(ContentFormatJSON), {Number: OptionURIPath, Value: []byte("a")}},
	}
	encoded := Encode(msg)
	decoded, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(decoded.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(decoded.Options))
	}
	if decoded.Options[0].Number > decoded.Options[1].Number {
		t.Fatalf("options not ascending: %+v", decoded.Options)
	}
}

func TestExtendedOptionNumberEscape(t *testing.T) {
	// option number 300 requires the 14-nibble 16-bit escape
	msg := Message{
		Version: 1, Type: TypeConfirmable, Code: CodeGET, MessageID: 1,
		Options: []Option{{Number: 300, Value: []byte{0x01}}},
	}
	encoded := Encode(msg)
	decoded, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(decoded.Options) != 1 || decoded.Options[0].Number != 300 {
		t.Fatalf("expected option number 300, got %+v", decoded.Options)
	}
}

func TestObserveOptionRoundTrip(t *testing.T) {
	msg := Message{Version: 1, Type: TypeConfirmable, Code: CodeGET, MessageID: 1, Options: []Option{ObserveOption(0)}}
	encoded := Encode(msg)
	decoded, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, present := decoded.Observe()
	if !present || v != 0 {
		t.Fatalf("expected observe=0 present, got present=%v v=%d", present, v)
	}
}

func TestPayloadMarkerRoundTrip(t *testing.T) {
	msg := Message{Version: 1, Type: TypeConfirmable, Code: CodeContent, MessageID: 1, Payload: []byte(`{"value":1}`)}
	encoded := Encode(msg)
	decoded, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if string(decoded.Payload) != `{"value":1}` {
		t.Fatalf("unexpected payload: %s", decoded.Payload)
	}
}
