package bridge

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMappingFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mappings.yaml")
	body := `
mappings:
  - name: temp-bridge
    source_protocol: mqtt
    source_topic: sensors/+/temp
    target_protocol: modbus
    target_topic: holding/1
    direction: forward
    field_mappings:
      - source: raw
        target: value
        type: integer
    formulas:
      - field: kwh
        expression: "data.value * 0.001"
    filters:
      - exclude: secret
    conditions:
      - field: value
        operator: gte
        value: 0
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	mappings, err := LoadMappingFile(path)
	if err != nil {
		t.Fatalf("LoadMappingFile: %v", err)
	}
	if len(mappings) != 1 {
		t.Fatalf("expected 1 mapping, got %d", len(mappings))
	}
	m := mappings[0]
	if m.Name != "temp-bridge" || m.SourceTopic != "sensors/+/temp" {
		t.Fatalf("unexpected mapping: %+v", m)
	}
	if len(m.FieldMappings) != 1 || m.FieldMappings[0].Type != "integer" {
		t.Fatalf("unexpected field mappings: %+v", m.FieldMappings)
	}
	if len(m.Formulas) != 1 {
		t.Fatalf("unexpected formulas: %+v", m.Formulas)
	}
	if len(m.Conditions) != 1 || m.Conditions[0].Operator != "gte" {
		t.Fatalf("unexpected conditions: %+v", m.Conditions)
	}
}

func TestLoadMappingFileMissing(t *testing.T) {
	if _, err := LoadMappingFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
