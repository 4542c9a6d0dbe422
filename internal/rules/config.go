package rules

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ioprotolab/simhub/internal/payload"
)

// ruleFile is the YAML/JSON-serializable shape of a rule file, following
// the same struct-tag loading style as internal/bridge's mapping file.
type ruleFile struct {
	Rules []ruleSpec `yaml:"rules" json:"rules"`
}

type ruleSpec struct {
	ID         string          `yaml:"id" json:"id"`
	Name       string          `yaml:"name" json:"name"`
	Priority   int             `yaml:"priority" json:"priority"`
	Enabled    *bool           `yaml:"enabled" json:"enabled"`
	Logic      string          `yaml:"logic" json:"logic"`
	CooldownMS int             `yaml:"cooldown_ms" json:"cooldown_ms"`
	Conditions []conditionSpec `yaml:"conditions" json:"conditions"`
	Actions    []actionSpec    `yaml:"actions" json:"actions"`
}

type conditionSpec struct {
	Field    string      `yaml:"field" json:"field"`
	Operator string      `yaml:"operator" json:"operator"`
	Value    interface{} `yaml:"value" json:"value"`
	Value2   interface{} `yaml:"value2" json:"value2"`
}

type actionSpec struct {
	Kind         string                 `yaml:"kind" json:"kind"`
	Params       map[string]interface{} `yaml:"params" json:"params"`
	AbortOnError bool                   `yaml:"abort_on_error" json:"abort_on_error"`
}

// LoadRuleFile reads a YAML or JSON rule file (selected by extension) and
// builds the Rule set it describes.
func LoadRuleFile(path string) ([]*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}

	var file ruleFile
	if strings.HasSuffix(path, ".json") {
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("rules: parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("rules: parse %s: %w", path, err)
	}

	rules := make([]*Rule, 0, len(file.Rules))
	for _, spec := range file.Rules {
		rules = append(rules, buildRule(spec))
	}
	return rules, nil
}

func buildRule(spec ruleSpec) *Rule {
	r := &Rule{
		ID:            spec.ID,
		Name:          spec.Name,
		Priority:      spec.Priority,
		Enabled:       spec.Enabled == nil || *spec.Enabled,
		Logic:         Logic(orDefault(spec.Logic, string(LogicAND))),
		Cooldown:      time.Duration(spec.CooldownMS) * time.Millisecond,
		lastThrottled: map[int]time.Time{},
	}

	for _, c := range spec.Conditions {
		r.Conditions = append(r.Conditions, Condition{
			Field:    c.Field,
			Operator: c.Operator,
			Value:    payload.FromAny(c.Value),
			Value2:   payload.FromAny(c.Value2),
		})
	}
	for _, a := range spec.Actions {
		params := make(map[string]payload.Value, len(a.Params))
		for k, v := range a.Params {
			params[k] = payload.FromAny(v)
		}
		r.Actions = append(r.Actions, Action{Kind: a.Kind, Params: params, AbortOnError: a.AbortOnError})
	}
	return r
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
