package app

import (
	"bufio"
	"bytes"

	"github.com/ioprotolab/simhub/internal/protocols/bacnet"
	"github.com/ioprotolab/simhub/internal/protocols/coap"
	"github.com/ioprotolab/simhub/internal/protocols/modbus"
	"github.com/ioprotolab/simhub/internal/protocols/mqttproto"
	"github.com/ioprotolab/simhub/internal/protocols/opcua"

	"github.com/ioprotolab/simhub/internal/capture"
)

// registerDecoders wires each protocol's best-effort decoded view into the
// capturer, so every stored packet gets a lazy decoded view produced by
// its protocol's decoder. Decoding is lenient — a packet that fails to
// parse (a short read, a fault-injected corruption) simply yields no
// decoded view rather than panicking.
func registerDecoders(c *capture.Capturer) {
	c.RegisterDecoder("modbus", decodeModbus)
	c.RegisterDecoder("mqtt", decodeMQTT)
	c.RegisterDecoder("coap", decodeCoAP)
	c.RegisterDecoder("bacnet", decodeBACnet)
	c.RegisterDecoder("opcua", decodeOPCUA)
}

func decodeModbus(evt capture.PacketEvent) map[string]interface{} {
	frame, err := modbus.Parse(evt.Payload)
	if err != nil {
		return nil
	}
	return map[string]interface{}{
		"transaction_id": frame.TransactionID,
		"unit_id":        frame.UnitID,
		"function_code":  frame.FunctionCode,
		"data_len":       len(frame.Data),
	}
}

func decodeMQTT(evt capture.PacketEvent) map[string]interface{} {
	pkt, err := mqttproto.ReadPacket(bufio.NewReader(bytes.NewReader(evt.Payload)))
	if err != nil {
		return nil
	}
	out := map[string]interface{}{
		"packet_type": pkt.Type,
		"flags":       pkt.Flags,
		"length":      len(pkt.Payload),
	}
	if pkt.Type == mqttproto.TypePublish {
		if pub, err := mqttproto.ParsePublish(pkt.Flags, pkt.Payload); err == nil {
			out["topic"] = pub.Topic
			out["qos"] = pub.Qos
			out["retain"] = pub.Retain
		}
	}
	return out
}

func decodeCoAP(evt capture.PacketEvent) map[string]interface{} {
	msg, err := coap.Parse(evt.Payload)
	if err != nil {
		return nil
	}
	out := map[string]interface{}{
		"type":       msg.Type,
		"code":       msg.Code,
		"message_id": msg.MessageID,
		"path":       msg.URIPath(),
	}
	if v, ok := msg.Observe(); ok {
		out["observe"] = v
	}
	return out
}

func decodeBACnet(evt capture.PacketEvent) map[string]interface{} {
	frame, err := bacnet.Parse(evt.Payload)
	if err != nil {
		return nil
	}
	return map[string]interface{}{
		"bvlc_function": frame.BVLCFunction,
		"apdu_len":      len(frame.APDU),
	}
}

func decodeOPCUA(evt capture.PacketEvent) map[string]interface{} {
	if len(evt.Payload) < 8 {
		return nil
	}
	msgType, bodyLen, err := opcua.FrameLength(evt.Payload[:8])
	if err != nil {
		return nil
	}
	return map[string]interface{}{
		"message_type": msgType,
		"body_len":     bodyLen,
	}
}
