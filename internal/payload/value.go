// Package payload implements the dynamic, JSON-shaped value the bridge
// engine, rules engine, and event bus pass around. Real-world payloads in
// this domain are untyped dicts; instead of walking interface{} with type
// assertions scattered across every caller, every producer/consumer here
// goes through one tagged variant with dotted-path accessors.
package payload

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
)

// Value is a tagged variant over the value shapes that appear in bridge
// transforms, rule conditions, and event data: null, bool, int, float,
// string, bytes, list, and map (string-keyed, ordered by first insertion
// purely for deterministic JSON marshaling — see Map).
type Value struct {
	kind  Kind
	b     bool
	i     int64
	f     float64
	s     string
	bytes []byte
	list  []Value
	m     *OrderedMap
}

// OrderedMap is a string-keyed map that preserves insertion order so that
// transform output is byte-identical across runs for identical input.
type OrderedMap struct {
	keys   []string
	values map[string]Value
}

func NewMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]Value)}
}

func (m *OrderedMap) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *OrderedMap) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *OrderedMap) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *OrderedMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *OrderedMap) Clone() *OrderedMap {
	clone := NewMap()
	for _, k := range m.keys {
		clone.Set(k, m.values[k])
	}
	return clone
}

func Null() Value              { return Value{kind: KindNull} }
func Bool(b bool) Value        { return Value{kind: KindBool, b: b} }
func Int(i int64) Value        { return Value{kind: KindInt, i: i} }
func Float(f float64) Value    { return Value{kind: KindFloat, f: f} }
func String(s string) Value    { return Value{kind: KindString, s: s} }
func Bytes(b []byte) Value     { return Value{kind: KindBytes, bytes: b} }
func List(vs []Value) Value    { return Value{kind: KindList, list: vs} }
func Map(m *OrderedMap) Value  { return Value{kind: KindMap, m: m} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) Int() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		return int64(v.f), true
	}
	return 0, false
}

func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBytes:
		return fmt.Sprintf("%x", v.bytes)
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case KindMap:
		return "{...}"
	}
	return ""
}

func (v Value) Bytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.bytes, true
}

func (v Value) List() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

func (v Value) Map() (*OrderedMap, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m, true
}

// Get resolves a dotted path such as "data.value" or "items.0.name" against
// the value. List indices are plain decimal segments. Returns (Null, false)
// if any segment is missing or the wrong kind.
func (v Value) Get(path string) (Value, bool) {
	if path == "" {
		return v, true
	}
	segs := strings.Split(path, ".")
	cur := v
	for _, seg := range segs {
		switch cur.kind {
		case KindMap:
			next, ok := cur.m.Get(seg)
			if !ok {
				return Null(), false
			}
			cur = next
		case KindList:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(cur.list) {
				return Null(), false
			}
			cur = cur.list[idx]
		default:
			return Null(), false
		}
	}
	return cur, true
}

// Set writes v at the dotted path, creating intermediate maps as needed.
// Set only supports map-valued intermediate segments (list indices cannot
// be created implicitly, matching the bridge's field_mapping semantics
// which only ever targets object fields).
func (root *Value) Set(path string, val Value) {
	if path == "" {
		*root = val
		return
	}
	if root.kind != KindMap {
		*root = Map(NewMap())
	}
	segs := strings.Split(path, ".")
	m := root.m
	for i, seg := range segs {
		if i == len(segs)-1 {
			m.Set(seg, val)
			return
		}
		next, ok := m.Get(seg)
		if !ok || next.kind != KindMap {
			next = Map(NewMap())
			m.Set(seg, next)
		}
		m.Set(seg, next)
		m = next.m
	}
}

// Delete removes the dotted-path field in place. Deleting a path whose
// parent is not a map, or that does not exist, is a no-op.
func (root *Value) Delete(path string) {
	if path == "" || root.kind != KindMap {
		return
	}
	segs := strings.Split(path, ".")
	m := root.m
	for i, seg := range segs {
		if i == len(segs)-1 {
			m.Delete(seg)
			return
		}
		next, ok := m.Get(seg)
		if !ok || next.kind != KindMap {
			return
		}
		m = next.m
	}
}

// Coerce converts v to the requested type name, used by bridge
// field_mappings' optional `type` attribute.
func Coerce(v Value, typ string) (Value, error) {
	switch typ {
	case "", "any":
		return v, nil
	case "integer":
		switch v.kind {
		case KindInt:
			return v, nil
		case KindFloat:
			return Int(int64(v.f)), nil
		case KindBool:
			if v.b {
				return Int(1), nil
			}
			return Int(0), nil
		case KindString:
			n, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
			if err != nil {
				return Null(), fmt.Errorf("coerce %q to integer: %w", v.s, err)
			}
			return Int(n), nil
		}
		return Null(), fmt.Errorf("cannot coerce %v to integer", v.kind)
	case "float":
		f, ok := v.Float()
		if ok {
			return Float(f), nil
		}
		if v.kind == KindString {
			f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
			if err != nil {
				return Null(), fmt.Errorf("coerce %q to float: %w", v.s, err)
			}
			return Float(f), nil
		}
		return Null(), fmt.Errorf("cannot coerce %v to float", v.kind)
	case "boolean":
		switch v.kind {
		case KindBool:
			return v, nil
		case KindInt:
			return Bool(v.i != 0), nil
		case KindFloat:
			return Bool(v.f != 0), nil
		case KindString:
			b, err := strconv.ParseBool(strings.TrimSpace(v.s))
			if err != nil {
				return Null(), fmt.Errorf("coerce %q to boolean: %w", v.s, err)
			}
			return Bool(b), nil
		}
		return Null(), fmt.Errorf("cannot coerce %v to boolean", v.kind)
	case "string":
		return String(v.String()), nil
	case "json":
		b, err := json.Marshal(ToAny(v))
		if err != nil {
			return Null(), fmt.Errorf("coerce to json: %w", err)
		}
		return String(string(b)), nil
	case "binary":
		switch v.kind {
		case KindBytes:
			return v, nil
		case KindString:
			return Bytes([]byte(v.s)), nil
		}
		return Null(), fmt.Errorf("cannot coerce %v to binary", v.kind)
	}
	return Null(), fmt.Errorf("unknown coercion type %q", typ)
}

// FromAny converts a generic Go value (as produced by encoding/json or
// gopkg.in/yaml.v3 unmarshaling into interface{}) into a Value tree.
func FromAny(a any) Value {
	switch x := a.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int64:
		return Int(x)
	case float64:
		return Float(x)
	case float32:
		return Float(float64(x))
	case string:
		return String(x)
	case []byte:
		return Bytes(x)
	case []any:
		vs := make([]Value, len(x))
		for i, e := range x {
			vs[i] = FromAny(e)
		}
		return List(vs)
	case map[string]any:
		m := NewMap()
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.Set(k, FromAny(x[k]))
		}
		return Map(m)
	default:
		return String(fmt.Sprintf("%v", x))
	}
}

// ToAny converts a Value tree back into plain Go interface{} values
// suitable for encoding/json marshaling.
func ToAny(v Value) any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBytes:
		return v.bytes
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = ToAny(e)
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m.keys))
		for _, k := range v.m.keys {
			val, _ := v.m.Get(k)
			out[k] = ToAny(val)
		}
		return out
	}
	return nil
}

// ParseJSON decodes JSON bytes into a Value tree, preserving numeric
// precision by routing integral JSON numbers to KindInt.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Null(), err
	}
	return fromAnyNumberAware(raw), nil
}

func fromAnyNumberAware(a any) Value {
	switch x := a.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return Int(n)
		}
		f, _ := x.Float64()
		return Float(f)
	case map[string]any:
		m := NewMap()
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.Set(k, fromAnyNumberAware(x[k]))
		}
		return Map(m)
	case []any:
		vs := make([]Value, len(x))
		for i, e := range x {
			vs[i] = fromAnyNumberAware(e)
		}
		return List(vs)
	default:
		return FromAny(a)
	}
}

// MarshalJSON renders the map in insertion order, which is what makes
// bridge transform output byte-identical across runs for identical input.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindMap:
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range v.m.keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			b.Write(kb)
			b.WriteByte(':')
			val, _ := v.m.Get(k)
			vb, err := val.MarshalJSON()
			if err != nil {
				return nil, err
			}
			b.Write(vb)
		}
		b.WriteByte('}')
		return []byte(b.String()), nil
	default:
		return json.Marshal(ToAny(v))
	}
}
