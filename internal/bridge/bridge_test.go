package bridge

import (
	"testing"

	"github.com/ioprotolab/simhub/internal/payload"
)

type recordingPublisher struct {
	calls []published
}

type published struct {
	protocol, topic string
	body            payload.Value
}

func (p *recordingPublisher) Publish(protocol, topic string, body payload.Value) error {
	p.calls = append(p.calls, published{protocol, topic, body})
	return nil
}

func TestTopicMatchesWildcards(t *testing.T) {
	cases := []struct {
		filter, topic string
		want          bool
	}{
		{"sensors/+/temp", "sensors/room1/temp", true},
		{"sensors/+/temp", "sensors/room1/room2/temp", false},
		{"sensors/#", "sensors/room1/temp", true},
		{"sensors/#", "sensors", true},
		{"sensors/exact", "sensors/exact", true},
		{"sensors/exact", "sensors/other", false},
	}
	for _, c := range cases {
		if got := topicMatches(c.filter, c.topic); got != c.want {
			t.Errorf("topicMatches(%q, %q) = %v, want %v", c.filter, c.topic, got, c.want)
		}
	}
}

func TestForwardMappingDelivers(t *testing.T) {
	pub := &recordingPublisher{}
	engine := NewEngine(pub)
	engine.SetMappings([]*Mapping{
		{
			Name:           "m1",
			SourceProtocol: "mqtt",
			SourceTopic:    "sensors/+/temp",
			TargetProtocol: "modbus",
			TargetTopic:    "holding/1",
			Direction:      DirectionForward,
		},
	})

	body := payload.Map(payload.NewMap())
	body.Set("value", payload.Int(42))
	engine.Route(Message{Protocol: "mqtt", Topic: "sensors/room1/temp", Body: body})

	if len(pub.calls) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(pub.calls))
	}
	if pub.calls[0].protocol != "modbus" || pub.calls[0].topic != "holding/1" {
		t.Fatalf("unexpected delivery target: %+v", pub.calls[0])
	}
	if engine.mappings[0].Forwarded != 1 {
		t.Fatalf("expected Forwarded stat incremented")
	}
}

func TestBidirMappingTriggersEitherSide(t *testing.T) {
	pub := &recordingPublisher{}
	engine := NewEngine(pub)
	engine.SetMappings([]*Mapping{
		{
			Name:           "m1",
			SourceProtocol: "mqtt",
			SourceTopic:    "a/+/x",
			TargetProtocol: "coap",
			TargetTopic:    "b/+/y",
			Direction:      DirectionBIDIR,
		},
	})

	engine.Route(Message{Protocol: "mqtt", Topic: "a/room1/x", Body: payload.Null()})
	engine.Route(Message{Protocol: "coap", Topic: "b/room2/y", Body: payload.Null()})

	if len(pub.calls) != 2 {
		t.Fatalf("expected both directions to deliver, got %d", len(pub.calls))
	}
	if pub.calls[0].protocol != "coap" || pub.calls[0].topic != "b/room1/y" {
		t.Fatalf("expected wildcard capture substituted into target, got %+v", pub.calls[0])
	}
	if pub.calls[1].protocol != "mqtt" || pub.calls[1].topic != "a/room2/x" {
		t.Fatalf("expected reverse direction substitution, got %+v", pub.calls[1])
	}
}

func TestConditionsGateForwarding(t *testing.T) {
	pub := &recordingPublisher{}
	engine := NewEngine(pub)
	engine.SetMappings([]*Mapping{
		{
			Name:           "m1",
			SourceProtocol: "mqtt",
			SourceTopic:    "x",
			TargetProtocol: "coap",
			TargetTopic:    "y",
			Direction:      DirectionForward,
			Conditions:     []Condition{{Field: "value", Operator: "gt", Value: payload.Int(10)}},
		},
	})

	low := payload.Map(payload.NewMap())
	low.Set("value", payload.Int(5))
	engine.Route(Message{Protocol: "mqtt", Topic: "x", Body: low})
	if len(pub.calls) != 0 {
		t.Fatalf("expected condition to block delivery, got %d calls", len(pub.calls))
	}

	high := payload.Map(payload.NewMap())
	high.Set("value", payload.Int(20))
	engine.Route(Message{Protocol: "mqtt", Topic: "x", Body: high})
	if len(pub.calls) != 1 {
		t.Fatalf("expected condition to allow delivery, got %d calls", len(pub.calls))
	}
}

func TestTransformFieldMappingsAndFormula(t *testing.T) {
	pub := &recordingPublisher{}
	engine := NewEngine(pub)
	engine.SetMappings([]*Mapping{
		{
			Name:           "m1",
			SourceProtocol: "mqtt",
			SourceTopic:    "x",
			TargetProtocol: "coap",
			TargetTopic:    "y",
			Direction:      DirectionForward,
			FieldMappings:  []FieldMapping{{Source: "raw", Target: "raw", Type: "integer"}},
			Formulas:       []Formula{{Field: "value", Expression: "data.raw * 0.001"}},
		},
	})

	in := payload.Map(payload.NewMap())
	in.Set("raw", payload.String("5000"))
	engine.Route(Message{Protocol: "mqtt", Topic: "x", Body: in})

	if len(pub.calls) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(pub.calls))
	}
	out := pub.calls[0].body
	value, ok := out.Get("value")
	if !ok {
		t.Fatal("expected formula result at 'value'")
	}
	f, _ := value.Float()
	if f != 5.0 {
		t.Fatalf("expected formula result 5.0, got %v", f)
	}
	if engine.mappings[0].Transformed != 1 {
		t.Fatal("expected Transformed stat incremented")
	}
}

func TestFiltersExcludeAndKeep(t *testing.T) {
	pub := &recordingPublisher{}
	engine := NewEngine(pub)
	engine.SetMappings([]*Mapping{
		{
			Name:           "m1",
			SourceProtocol: "mqtt",
			SourceTopic:    "x",
			TargetProtocol: "coap",
			TargetTopic:    "y",
			Direction:      DirectionForward,
			Filters:        []Filter{{Exclude: "secret"}, {Keep: "status"}},
		},
	})

	in := payload.Map(payload.NewMap())
	in.Set("secret", payload.String("shh"))
	in.Set("value", payload.Int(1))
	engine.Route(Message{Protocol: "mqtt", Topic: "x", Body: in})

	out := pub.calls[0].body
	if _, ok := out.Get("secret"); ok {
		t.Fatal("expected excluded field removed")
	}
	if status, ok := out.Get("status"); !ok || !status.IsNull() {
		t.Fatal("expected kept-but-absent field inserted as null")
	}
}
