package rules

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ioprotolab/simhub/internal/bridge"
	"github.com/ioprotolab/simhub/internal/events"
	"github.com/ioprotolab/simhub/internal/payload"
)

// Publisher is how publish_message actions reach a protocol simulator.
// The bridge engine already satisfies this shape, so a single Publisher
// implementation backs both bridge mappings and rule actions.
type Publisher = bridge.Publisher

// AlertSink receives send_alert actions.
type AlertSink interface {
	SendAlert(severity, message string, data payload.Value) error
}

// Webhook delivers webhook actions. Satisfied by HTTPWebhook (webhook.go),
// which internal/app wires into the engine.
type Webhook interface {
	Post(ctx context.Context, url string, body payload.Value) error
}

// ActionResult records one action's outcome. evaluateRule returns one per
// action it ran; Evaluate discards them.
type ActionResult struct {
	Kind    string
	Err     error
	Skipped bool // true when a throttle window suppressed the action
}

// Engine evaluates rules and executes their actions.
type Engine struct {
	mu    sync.RWMutex
	rules []*Rule

	publisher Publisher
	alerts    AlertSink
	webhook   Webhook
	eventBus  events.Bus
	log       *zap.Logger
}

func NewEngine(pub Publisher, alerts AlertSink, webhook Webhook, bus events.Bus, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{publisher: pub, alerts: alerts, webhook: webhook, eventBus: bus, log: log}
}

// SetRules replaces the engine's rule set, ordering by descending priority
// with ties broken by original (insertion) order.
func (e *Engine) SetRules(rules []*Rule) {
	for i, r := range rules {
		r.insertionOrder = i
		if r.lastThrottled == nil {
			r.lastThrottled = map[int]time.Time{}
		}
	}
	sorted := make([]*Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].insertionOrder < sorted[j].insertionOrder
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = sorted
}

func (e *Engine) Rules() []*Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate runs every enabled rule against data in priority order. A rule
// under cooldown is skipped entirely, without evaluating its conditions,
// so cooldown is enforced before any re-evaluation happens.
func (e *Engine) Evaluate(ctx context.Context, data payload.Value) {
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	for _, r := range rules {
		e.evaluateRule(ctx, r, data, 0)
	}
}

func (e *Engine) evaluateRule(ctx context.Context, r *Rule, data payload.Value, depth int) []ActionResult {
	if !r.Enabled {
		return nil
	}
	if r.underCooldown() {
		return nil
	}
	if !conditionsHold(r.Conditions, r.Logic, data) {
		return nil
	}

	r.markFired()
	return e.runActions(ctx, r, data, depth)
}

func (r *Rule) underCooldown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasFired || r.Cooldown <= 0 {
		return false
	}
	return time.Since(r.lastFiredAt) < r.Cooldown
}

func (r *Rule) markFired() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hasFired = true
	r.lastFiredAt = time.Now()
}

func (e *Engine) runActions(ctx context.Context, r *Rule, data payload.Value, depth int) []ActionResult {
	results := make([]ActionResult, 0, len(r.Actions))
	for i, a := range r.Actions {
		res := e.runAction(ctx, r, i, a, data, depth)
		results = append(results, res)
		if res.Err != nil && a.AbortOnError {
			break
		}
	}
	return results
}

func (e *Engine) runAction(ctx context.Context, r *Rule, index int, a Action, data payload.Value, depth int) ActionResult {
	switch a.Kind {
	case ActionLog:
		e.log.Info("rule action: log", zap.String("rule", r.Name), zap.String("message", paramString(a.Params, "message")))
		return ActionResult{Kind: a.Kind}

	case ActionPublishMessage:
		if e.publisher == nil {
			return ActionResult{Kind: a.Kind, Err: fmt.Errorf("rules: no publisher configured")}
		}
		protocol := paramString(a.Params, "protocol")
		topic := paramString(a.Params, "topic")
		body := a.Params["body"]
		return ActionResult{Kind: a.Kind, Err: e.publisher.Publish(protocol, topic, body)}

	case ActionSetValue:
		field := paramString(a.Params, "field")
		value := a.Params["value"]
		data.Set(field, value)
		return ActionResult{Kind: a.Kind}

	case ActionSendAlert:
		if e.alerts == nil {
			return ActionResult{Kind: a.Kind, Err: fmt.Errorf("rules: no alert sink configured")}
		}
		severity := paramString(a.Params, "severity")
		message := paramString(a.Params, "message")
		return ActionResult{Kind: a.Kind, Err: e.alerts.SendAlert(severity, message, data)}

	case ActionWebhook:
		if e.webhook == nil {
			return ActionResult{Kind: a.Kind, Err: fmt.Errorf("rules: no webhook sender configured")}
		}
		url := paramString(a.Params, "url")
		return ActionResult{Kind: a.Kind, Err: e.webhook.Post(ctx, url, data)}

	case ActionDelay:
		ms := paramInt(a.Params, "ms")
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
		case <-ctx.Done():
			return ActionResult{Kind: a.Kind, Err: ctx.Err()}
		}
		return ActionResult{Kind: a.Kind}

	case ActionThrottle:
		window := time.Duration(paramInt(a.Params, "ms")) * time.Millisecond
		if r.throttled(index, window) {
			return ActionResult{Kind: a.Kind, Skipped: true}
		}
		return ActionResult{Kind: a.Kind}

	case ActionTriggerRule:
		return e.triggerRule(ctx, a, data, depth)

	case ActionCreateEvent:
		if e.eventBus == nil {
			return ActionResult{Kind: a.Kind, Err: fmt.Errorf("rules: no event bus configured")}
		}
		evt := events.Event{
			Type:      paramString(a.Params, "type"),
			Source:    "rules",
			Timestamp: time.Now(),
			Data:      map[string]interface{}{"value": payload.ToAny(data)},
		}
		return ActionResult{Kind: a.Kind, Err: e.eventBus.Publish(evt)}

	default:
		return ActionResult{Kind: a.Kind, Err: fmt.Errorf("rules: unknown action kind %q", a.Kind)}
	}
}

// triggerRule re-enters rule evaluation for a named rule, enforcing the
// spec's max-depth-16 cycle protection.
func (e *Engine) triggerRule(ctx context.Context, a Action, data payload.Value, depth int) ActionResult {
	if depth >= maxTriggerDepth {
		return ActionResult{Kind: ActionTriggerRule, Err: fmt.Errorf("rules: trigger_rule exceeded max depth %d", maxTriggerDepth)}
	}
	targetID := paramString(a.Params, "rule_id")

	e.mu.RLock()
	var target *Rule
	for _, r := range e.rules {
		if r.ID == targetID {
			target = r
			break
		}
	}
	e.mu.RUnlock()

	if target == nil {
		return ActionResult{Kind: ActionTriggerRule, Err: fmt.Errorf("rules: trigger_rule target %q not found", targetID)}
	}

	e.evaluateRule(ctx, target, data, depth+1)
	return ActionResult{Kind: ActionTriggerRule}
}

// throttled reports whether actionIndex fired within the last window,
// recording the current time as the new high-water mark when it did not.
func (r *Rule) throttled(actionIndex int, window time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if window <= 0 {
		return false
	}
	last, ok := r.lastThrottled[actionIndex]
	now := time.Now()
	if ok && now.Sub(last) < window {
		return true
	}
	r.lastThrottled[actionIndex] = now
	return false
}

func paramString(params map[string]payload.Value, key string) string {
	v, ok := params[key]
	if !ok {
		return ""
	}
	return v.String()
}

func paramInt(params map[string]payload.Value, key string) int64 {
	v, ok := params[key]
	if !ok {
		return 0
	}
	n, _ := v.Int()
	return n
}
