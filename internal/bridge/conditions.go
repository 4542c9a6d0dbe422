package bridge

import (
	"strings"

	"github.com/ioprotolab/simhub/internal/payload"
)

// conditionsHold evaluates the bridge's condition set: eq, ne, gt, lt,
// gte, lte, in, contains. A rule fires only if all conditions hold.
func conditionsHold(conds []Condition, data payload.Value) bool {
	for _, c := range conds {
		if !evalCondition(c, data) {
			return false
		}
	}
	return true
}

func evalCondition(c Condition, data payload.Value) bool {
	field, ok := data.Get(c.Field)
	if !ok {
		field = payload.Null()
	}
	return EvalOperator(c.Operator, field, c.Value)
}

// EvalOperator evaluates one bridge/rules-shared operator. Exported so
// the rules engine can extend this same operator set with its own
// additions.
func EvalOperator(op string, field, want payload.Value) bool {
	switch op {
	case "eq":
		return valuesEqual(field, want)
	case "ne":
		return !valuesEqual(field, want)
	case "gt":
		return compare(field, want) > 0
	case "lt":
		return compare(field, want) < 0
	case "gte":
		return compare(field, want) >= 0
	case "lte":
		return compare(field, want) <= 0
	case "in":
		list, ok := want.List()
		if !ok {
			return false
		}
		for _, item := range list {
			if valuesEqual(field, item) {
				return true
			}
		}
		return false
	case "contains":
		switch field.Kind() {
		case payload.KindList:
			list, _ := field.List()
			for _, item := range list {
				if valuesEqual(item, want) {
					return true
				}
			}
			return false
		case payload.KindString:
			return strings.Contains(field.String(), want.String())
		}
		return false
	}
	return false
}

func valuesEqual(a, b payload.Value) bool {
	if af, aok := a.Float(); aok {
		if bf, bok := b.Float(); bok {
			return af == bf
		}
	}
	return a.Kind() == b.Kind() && a.String() == b.String()
}

// compare returns -1/0/1 comparing a to b numerically if both are
// numeric, lexically otherwise.
func compare(a, b payload.Value) int {
	if af, aok := a.Float(); aok {
		if bf, bok := b.Float(); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, bs := a.String(), b.String()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}
