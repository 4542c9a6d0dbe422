// Package bridge implements the bridge engine: it routes published
// messages from one simulator's topic to another's, optionally
// transforming the payload and gating delivery on conditions.
package bridge

import (
	"sync"
	"sync/atomic"

	"github.com/ioprotolab/simhub/internal/eval"
	"github.com/ioprotolab/simhub/internal/payload"
)

// Direction names which way a Mapping forwards.
type Direction string

const (
	DirectionForward Direction = "forward" // source -> target only
	DirectionReverse Direction = "reverse" // target -> source only
	DirectionBIDIR   Direction = "bidir"   // either side triggers forwarding to the other
)

// FieldMapping copies (and optionally coerces) one dotted-path field from
// the input object to a dotted-path field on the output object.
type FieldMapping struct {
	Source string
	Target string
	Type   string // "" means no coercion; otherwise one of payload.Coerce's types
}

// Formula computes a value from the in-progress transformed object and
// writes it to its own dotted-path field, e.g. {Field: "kwh", Expression:
// "data['value'] * 0.001"}.
type Formula struct {
	Field      string
	Expression string
}

// Filter is the bridge's third transform step: exclude drops a field,
// keep ensures a field exists (inserting null if absent).
type Filter struct {
	Exclude string
	Keep    string
}

// Condition is one of the bridge's eight-operator gate predicates. Field
// resolution is a dotted-path lookup on the input object.
type Condition struct {
	Field    string
	Operator string // eq, ne, gt, lt, gte, lte, in, contains
	Value    payload.Value
}

// Mapping is one routing rule: a source (protocol, topic filter) and
// target (protocol, topic), an ordered transform pipeline, and a set of
// gating conditions that must all hold.
type Mapping struct {
	Name           string
	SourceProtocol string
	SourceTopic    string
	TargetProtocol string
	TargetTopic    string
	Direction      Direction

	FieldMappings []FieldMapping
	Formulas      []Formula // each evaluated in turn over the transformed object
	Filters       []Filter
	Conditions    []Condition

	Forwarded   uint64
	Transformed uint64
	Errors      uint64
}

// Message is what a protocol simulator publishes onto the bridge.
type Message struct {
	Protocol string
	Topic    string
	Body     payload.Value
}

// Publisher is how the bridge engine delivers a forwarded message back
// into a target protocol simulator (e.g. publishing onto an MQTT broker's
// internal topic tree, or writing a Modbus register).
type Publisher interface {
	Publish(protocol, topic string, body payload.Value) error
}

// Engine owns a set of Mappings and routes Messages through them.
type Engine struct {
	mu        sync.RWMutex
	mappings  []*Mapping
	publisher Publisher
}

func NewEngine(pub Publisher) *Engine {
	return &Engine{publisher: pub}
}

// SetMappings replaces the engine's mapping set wholesale.
func (e *Engine) SetMappings(mappings []*Mapping) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mappings = mappings
}

// Mappings returns the current mapping set.
func (e *Engine) Mappings() []*Mapping {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Mapping, len(e.mappings))
	copy(out, e.mappings)
	return out
}

// Route evaluates msg against every mapping and forwards at most once per
// mapping.
func (e *Engine) Route(msg Message) {
	e.mu.RLock()
	mappings := e.mappings
	e.mu.RUnlock()

	for _, m := range mappings {
		targetProtocol, targetTopic, ok := matchMapping(m, msg)
		if !ok {
			continue
		}
		e.forward(m, msg, targetProtocol, targetTopic)
	}
}

func (e *Engine) forward(m *Mapping, msg Message, targetProtocol, targetTopic string) {
	if !conditionsHold(m.Conditions, msg.Body) {
		return
	}

	out, transformed, err := transformMessage(m, msg.Body)
	if err != nil {
		atomic.AddUint64(&m.Errors, 1)
		return
	}
	if transformed {
		atomic.AddUint64(&m.Transformed, 1)
	}

	if e.publisher != nil {
		if err := e.publisher.Publish(targetProtocol, targetTopic, out); err != nil {
			atomic.AddUint64(&m.Errors, 1)
			return
		}
	}
	atomic.AddUint64(&m.Forwarded, 1)
}

// transformMessage runs the three-step deterministic pipeline: field
// mappings (with coercion), formulas (via the restricted evaluator), then
// filters.
func transformMessage(m *Mapping, in payload.Value) (payload.Value, bool, error) {
	transformed := false
	out := payload.Map(payload.NewMap())

	for _, fm := range m.FieldMappings {
		val, ok := in.Get(fm.Source)
		if !ok {
			continue
		}
		if fm.Type != "" {
			coerced, err := payload.Coerce(val, fm.Type)
			if err != nil {
				return payload.Value{}, false, err
			}
			val = coerced
		}
		out.Set(fm.Target, val)
		transformed = true
	}

	if len(m.FieldMappings) == 0 {
		// Deep-copy rather than alias in: msg.Body's underlying map is shared
		// across every mapping evaluating the same published message, and
		// filters/formulas below mutate out in place.
		out = deepClone(in)
	}

	env := eval.Env{"data": out}
	for _, formula := range m.Formulas {
		if formula.Expression == "" || formula.Field == "" {
			continue
		}
		result, err := eval.Eval(formula.Expression, env)
		if err != nil {
			return payload.Value{}, false, err
		}
		out.Set(formula.Field, result)
		env["data"] = out
		transformed = true
	}

	for _, f := range m.Filters {
		if f.Exclude != "" {
			out.Delete(f.Exclude)
		}
		if f.Keep != "" {
			if _, ok := out.Get(f.Keep); !ok {
				out.Set(f.Keep, payload.Null())
			}
		}
	}

	return out, transformed, nil
}

// deepClone copies a payload.Value tree so transform mutation never
// reaches back into the publisher's original message.
func deepClone(v payload.Value) payload.Value {
	switch v.Kind() {
	case payload.KindMap:
		m, _ := v.Map()
		out := payload.NewMap()
		for _, k := range m.Keys() {
			val, _ := m.Get(k)
			out.Set(k, deepClone(val))
		}
		return payload.Map(out)
	case payload.KindList:
		list, _ := v.List()
		out := make([]payload.Value, len(list))
		for i, e := range list {
			out[i] = deepClone(e)
		}
		return payload.List(out)
	default:
		return v
	}
}
