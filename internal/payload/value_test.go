package payload

import "testing"

func TestGetSetDottedPath(t *testing.T) {
	v := Map(NewMap())
	v.Set("data.value", Int(1000))
	v.Set("data.address", Int(4))

	got, ok := v.Get("data.value")
	if !ok {
		t.Fatalf("expected data.value to resolve")
	}
	if n, _ := got.Int(); n != 1000 {
		t.Fatalf("expected 1000, got %d", n)
	}

	if _, ok := v.Get("data.missing"); ok {
		t.Fatalf("expected missing path to fail")
	}
}

func TestGetListIndex(t *testing.T) {
	root := Map(NewMap())
	root.Set("items", List([]Value{String("a"), String("b")}))

	got, ok := root.Get("items.1")
	if !ok || got.String() != "b" {
		t.Fatalf("expected items.1 == b, got %v ok=%v", got, ok)
	}
}

func TestCoerceTypes(t *testing.T) {
	cases := []struct {
		in   Value
		typ  string
		want string
	}{
		{String("42"), "integer", "42"},
		{Int(1000), "float", "1000"},
		{String("true"), "boolean", "true"},
		{Int(0), "boolean", "false"},
	}
	for _, c := range cases {
		got, err := Coerce(c.in, c.typ)
		if err != nil {
			t.Fatalf("coerce(%v,%s): %v", c.in, c.typ, err)
		}
		if got.String() != c.want {
			t.Fatalf("coerce(%v,%s) = %s, want %s", c.in, c.typ, got.String(), c.want)
		}
	}
}

func TestMarshalJSONDeterministic(t *testing.T) {
	build := func() Value {
		v := Map(NewMap())
		v.Set("sensor_value", Float(1000.0))
		v.Set("address", Int(4))
		v.Set("kwh", Float(1.0))
		return v
	}

	a, err := build().MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	b, err := build().MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Fatalf("expected deterministic output, got %s vs %s", a, b)
	}
}
