package eval

import (
	"fmt"

	"github.com/ioprotolab/simhub/internal/payload"
)

// Env resolves identifiers (currently only "data", the transformed object
// under construction) to payload.Value trees.
type Env map[string]payload.Value

// Eval parses src and evaluates it against env in one call.
func Eval(src string, env Env) (payload.Value, error) {
	node, err := Parse(src)
	if err != nil {
		return payload.Null(), err
	}
	return EvalNode(node, env)
}

// EvalNode walks a parsed AST against env. It never executes arbitrary Go
// code and never reflects into env beyond the documented identifier set —
// this is the entire trusted boundary for user-supplied formulas.
func EvalNode(n Node, env Env) (payload.Value, error) {
	switch node := n.(type) {
	case LiteralNode:
		return literalValue(node.Value), nil

	case IdentNode:
		v, ok := env[node.Name]
		if !ok {
			return payload.Null(), fmt.Errorf("eval: unknown identifier %q", node.Name)
		}
		return v, nil

	case FieldNode:
		base, err := EvalNode(node.Base, env)
		if err != nil {
			return payload.Null(), err
		}
		key, err := EvalNode(node.Key, env)
		if err != nil {
			return payload.Null(), err
		}
		return fieldAccess(base, key)

	case UnaryNode:
		v, err := EvalNode(node.Expr, env)
		if err != nil {
			return payload.Null(), err
		}
		return applyUnary(node.Op, v)

	case BinaryNode:
		return evalBinary(node, env)
	}
	return payload.Null(), fmt.Errorf("eval: unsupported node %T", n)
}

func literalValue(v any) payload.Value {
	switch x := v.(type) {
	case nil:
		return payload.Null()
	case bool:
		return payload.Bool(x)
	case int64:
		return payload.Int(x)
	case float64:
		return payload.Float(x)
	case string:
		return payload.String(x)
	}
	return payload.Null()
}

func fieldAccess(base, key payload.Value) (payload.Value, error) {
	switch base.Kind() {
	case payload.KindMap:
		m, _ := base.Map()
		v, ok := m.Get(key.String())
		if !ok {
			return payload.Null(), nil
		}
		return v, nil
	case payload.KindList:
		list, _ := base.List()
		idx, ok := key.Int()
		if !ok || idx < 0 || int(idx) >= len(list) {
			return payload.Null(), nil
		}
		return list[idx], nil
	case payload.KindNull:
		return payload.Null(), nil
	}
	return payload.Null(), fmt.Errorf("eval: cannot index into %v", base.Kind())
}

func applyUnary(op tokenKind, v payload.Value) (payload.Value, error) {
	switch op {
	case tokNot:
		return payload.Bool(!truthy(v)), nil
	case tokMinus:
		if f, ok := v.Float(); ok {
			if v.Kind() == payload.KindInt {
				i, _ := v.Int()
				return payload.Int(-i), nil
			}
			return payload.Float(-f), nil
		}
		return payload.Null(), fmt.Errorf("eval: cannot negate %v", v.Kind())
	}
	return payload.Null(), fmt.Errorf("eval: unsupported unary operator")
}

func truthy(v payload.Value) bool {
	switch v.Kind() {
	case payload.KindNull:
		return false
	case payload.KindBool:
		b, _ := v.Bool()
		return b
	case payload.KindInt:
		i, _ := v.Int()
		return i != 0
	case payload.KindFloat:
		f, _ := v.Float()
		return f != 0
	case payload.KindString:
		return v.String() != ""
	case payload.KindList:
		l, _ := v.List()
		return len(l) > 0
	case payload.KindMap:
		m, _ := v.Map()
		return len(m.Keys()) > 0
	}
	return false
}

func evalBinary(node BinaryNode, env Env) (payload.Value, error) {
	if node.Op == tokAnd {
		left, err := EvalNode(node.Left, env)
		if err != nil {
			return payload.Null(), err
		}
		if !truthy(left) {
			return payload.Bool(false), nil
		}
		right, err := EvalNode(node.Right, env)
		if err != nil {
			return payload.Null(), err
		}
		return payload.Bool(truthy(right)), nil
	}
	if node.Op == tokOr {
		left, err := EvalNode(node.Left, env)
		if err != nil {
			return payload.Null(), err
		}
		if truthy(left) {
			return payload.Bool(true), nil
		}
		right, err := EvalNode(node.Right, env)
		if err != nil {
			return payload.Null(), err
		}
		return payload.Bool(truthy(right)), nil
	}

	left, err := EvalNode(node.Left, env)
	if err != nil {
		return payload.Null(), err
	}
	right, err := EvalNode(node.Right, env)
	if err != nil {
		return payload.Null(), err
	}

	switch node.Op {
	case tokPlus:
		if left.Kind() == payload.KindString || right.Kind() == payload.KindString {
			return payload.String(left.String() + right.String()), nil
		}
		return numericBinary(left, right, func(a, b float64) float64 { return a + b })
	case tokMinus:
		return numericBinary(left, right, func(a, b float64) float64 { return a - b })
	case tokStar:
		return numericBinary(left, right, func(a, b float64) float64 { return a * b })
	case tokSlash:
		return numericBinary(left, right, func(a, b float64) float64 {
			if b == 0 {
				return 0
			}
			return a / b
		})
	case tokPercent:
		lf, _ := left.Int()
		rf, _ := right.Int()
		if rf == 0 {
			return payload.Int(0), nil
		}
		return payload.Int(lf % rf), nil
	case tokEq:
		return payload.Bool(valuesEqual(left, right)), nil
	case tokNe:
		return payload.Bool(!valuesEqual(left, right)), nil
	case tokLt, tokLe, tokGt, tokGe:
		return compareOrdered(node.Op, left, right)
	}
	return payload.Null(), fmt.Errorf("eval: unsupported binary operator")
}

func bothInt(a, b payload.Value) bool {
	return a.Kind() == payload.KindInt && b.Kind() == payload.KindInt
}

func numericBinary(a, b payload.Value, f func(x, y float64) float64) (payload.Value, error) {
	af, aok := a.Float()
	bf, bok := b.Float()
	if !aok || !bok {
		return payload.Null(), fmt.Errorf("eval: arithmetic on non-numeric value")
	}
	if bothInt(a, b) {
		return payload.Int(int64(f(af, bf))), nil
	}
	return payload.Float(f(af, bf)), nil
}

func valuesEqual(a, b payload.Value) bool {
	if af, aok := a.Float(); aok {
		if bf, bok := b.Float(); bok {
			return af == bf
		}
	}
	return a.String() == b.String() && a.Kind() == b.Kind()
}

func compareOrdered(op tokenKind, a, b payload.Value) (payload.Value, error) {
	af, aok := a.Float()
	bf, bok := b.Float()
	var cmp int
	if aok && bok {
		switch {
		case af < bf:
			cmp = -1
		case af > bf:
			cmp = 1
		}
	} else {
		as, bs := a.String(), b.String()
		switch {
		case as < bs:
			cmp = -1
		case as > bs:
			cmp = 1
		}
	}
	switch op {
	case tokLt:
		return payload.Bool(cmp < 0), nil
	case tokLe:
		return payload.Bool(cmp <= 0), nil
	case tokGt:
		return payload.Bool(cmp > 0), nil
	case tokGe:
		return payload.Bool(cmp >= 0), nil
	}
	return payload.Null(), fmt.Errorf("eval: unsupported comparison")
}
