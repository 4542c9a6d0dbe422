// Package rules implements the automation rules engine: a rule evaluates
// conditions against a data object and, on match, runs an ordered list of
// actions. Condition evaluation builds on the bridge engine's operator set
// (internal/bridge.EvalOperator) rather than duplicating it.
package rules

import (
	"sync"
	"time"

	"github.com/ioprotolab/simhub/internal/bridge"
	"github.com/ioprotolab/simhub/internal/payload"
)

// Logic joins a rule's conditions.
type Logic string

const (
	LogicAND Logic = "and"
	LogicOR  Logic = "or"
)

// Condition is one predicate in a rule's condition set. Operator is either
// one of bridge.EvalOperator's set (eq/ne/gt/lt/gte/lte/in/contains) or one
// of the rules-specific extensions handled directly in evalCondition.
type Condition struct {
	Field    string
	Operator string
	Value    payload.Value
	Value2   payload.Value // second bound, only used by "between"
}

// Action is one step of a rule's action list. Params is intentionally
// loosely typed (payload.Value) since each Kind interprets its own subset.
type Action struct {
	Kind         string
	Params       map[string]payload.Value
	AbortOnError bool
}

// Action kinds.
const (
	ActionLog            = "log"
	ActionPublishMessage = "publish_message"
	ActionSetValue       = "set_value"
	ActionSendAlert      = "send_alert"
	ActionWebhook        = "webhook"
	ActionDelay          = "delay"
	ActionThrottle       = "throttle"
	ActionTriggerRule    = "trigger_rule"
	ActionCreateEvent    = "create_event"
)

// Rule is one automation rule.
type Rule struct {
	ID         string
	Name       string
	Priority   int // higher runs first
	Enabled    bool
	Conditions []Condition
	Logic      Logic
	Actions    []Action
	Cooldown   time.Duration

	insertionOrder int
	mu             sync.Mutex
	lastFiredAt    time.Time
	hasFired       bool
	lastThrottled  map[int]time.Time // per-action-index throttle state
}

// maxTriggerDepth bounds trigger_rule recursion depth to guard against
// rules that trigger each other in a cycle.
const maxTriggerDepth = 16

// conditionsHold evaluates a rule's condition set under its Logic.
func conditionsHold(conds []Condition, logic Logic, data payload.Value) bool {
	if len(conds) == 0 {
		return true
	}
	if logic == LogicOR {
		for _, c := range conds {
			if evalCondition(c, data) {
				return true
			}
		}
		return false
	}
	for _, c := range conds {
		if !evalCondition(c, data) {
			return false
		}
	}
	return true
}

func evalCondition(c Condition, data payload.Value) bool {
	field, has := data.Get(c.Field)
	if !has {
		field = payload.Null()
	}

	switch c.Operator {
	case "is_null":
		return field.IsNull()
	case "is_not_null":
		return !field.IsNull()
	case "regex":
		return matchRegex(field, c.Value)
	case "starts_with":
		return strHasPrefix(field, c.Value)
	case "ends_with":
		return strHasSuffix(field, c.Value)
	case "not_contains":
		return !bridge.EvalOperator("contains", field, c.Value)
	case "not_in":
		return !bridge.EvalOperator("in", field, c.Value)
	case "between":
		return between(field, c.Value, c.Value2)
	default:
		return bridge.EvalOperator(c.Operator, field, c.Value)
	}
}
