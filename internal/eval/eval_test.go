package eval

import (
	"testing"

	"github.com/ioprotolab/simhub/internal/payload"
)

func mustEnv(t *testing.T) Env {
	t.Helper()
	data := payload.Map(payload.NewMap())
	data.Set("value", payload.Int(1000))
	data.Set("address", payload.Int(4))
	return Env{"data": data}
}

func TestEvalArithmeticFormula(t *testing.T) {
	env := mustEnv(t)
	v, err := Eval("data['value'] * 0.001", env)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	f, ok := v.Float()
	if !ok || f != 1.0 {
		t.Fatalf("expected 1.0, got %v", v)
	}
}

func TestEvalDottedFieldAccess(t *testing.T) {
	env := mustEnv(t)
	v, err := Eval("data.address == 4", env)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	b, ok := v.Bool()
	if !ok || !b {
		t.Fatalf("expected true, got %v", v)
	}
}

func TestEvalComparisonsAndBooleans(t *testing.T) {
	env := mustEnv(t)
	cases := []struct {
		expr string
		want bool
	}{
		{"data.value > 500 && data.address < 10", true},
		{"data.value < 500 || data.address == 4", true},
		{"!(data.address == 4)", false},
		{"data.value >= 1000", true},
	}
	for _, c := range cases {
		v, err := Eval(c.expr, env)
		if err != nil {
			t.Fatalf("eval(%q): %v", c.expr, err)
		}
		got, _ := v.Bool()
		if got != c.want {
			t.Fatalf("eval(%q) = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestEvalRejectsUnknownIdentifier(t *testing.T) {
	if _, err := Eval("nonexistent + 1", Env{}); err == nil {
		t.Fatalf("expected error for unknown identifier")
	}
}

func TestEvalRejectsMalformedExpression(t *testing.T) {
	if _, err := Eval("data[", mustEnv(t)); err == nil {
		t.Fatalf("expected parse error")
	}
}
