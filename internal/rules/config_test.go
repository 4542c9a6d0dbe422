package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRuleFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	body := `
rules:
  - id: high-temp
    name: High Temperature Alert
    priority: 10
    logic: and
    cooldown_ms: 5000
    conditions:
      - field: temp
        operator: gt
        value: 80
    actions:
      - kind: send_alert
        params:
          severity: critical
          message: "temperature too high"
      - kind: delay
        params:
          ms: 100
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRuleFile(path)
	if err != nil {
		t.Fatalf("LoadRuleFile: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	r := rules[0]
	if r.Name != "High Temperature Alert" || r.Priority != 10 || !r.Enabled {
		t.Fatalf("unexpected rule: %+v", r)
	}
	if len(r.Conditions) != 1 || r.Conditions[0].Operator != "gt" {
		t.Fatalf("unexpected conditions: %+v", r.Conditions)
	}
	if len(r.Actions) != 2 || r.Actions[0].Kind != "send_alert" {
		t.Fatalf("unexpected actions: %+v", r.Actions)
	}
}

func TestLoadRuleFileMissing(t *testing.T) {
	if _, err := LoadRuleFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
