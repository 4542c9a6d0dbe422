package bridge

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ioprotolab/simhub/internal/payload"
)

// mappingFile is the YAML/JSON-serializable shape of a mapping file,
// following alibo's yaml.v3 struct-tag config loading style.
type mappingFile struct {
	Mappings []mappingSpec `yaml:"mappings" json:"mappings"`
}

type mappingSpec struct {
	Name           string             `yaml:"name" json:"name"`
	SourceProtocol string             `yaml:"source_protocol" json:"source_protocol"`
	SourceTopic    string             `yaml:"source_topic" json:"source_topic"`
	TargetProtocol string             `yaml:"target_protocol" json:"target_protocol"`
	TargetTopic    string             `yaml:"target_topic" json:"target_topic"`
	Direction      string             `yaml:"direction" json:"direction"`
	FieldMappings  []fieldMappingSpec `yaml:"field_mappings" json:"field_mappings"`
	Formulas       []formulaSpec      `yaml:"formulas" json:"formulas"`
	Filters        []filterSpec       `yaml:"filters" json:"filters"`
	Conditions     []conditionSpec    `yaml:"conditions" json:"conditions"`
}

type fieldMappingSpec struct {
	Source string `yaml:"source" json:"source"`
	Target string `yaml:"target" json:"target"`
	Type   string `yaml:"type" json:"type"`
}

type formulaSpec struct {
	Field      string `yaml:"field" json:"field"`
	Expression string `yaml:"expression" json:"expression"`
}

type filterSpec struct {
	Exclude string `yaml:"exclude" json:"exclude"`
	Keep    string `yaml:"keep" json:"keep"`
}

type conditionSpec struct {
	Field    string      `yaml:"field" json:"field"`
	Operator string      `yaml:"operator" json:"operator"`
	Value    interface{} `yaml:"value" json:"value"`
}

// LoadMappingFile reads a YAML or JSON mapping file (selected by
// extension) and builds the Mapping set it describes.
func LoadMappingFile(path string) ([]*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bridge: read %s: %w", path, err)
	}

	var file mappingFile
	if strings.HasSuffix(path, ".json") {
		if err := yamlCompatibleJSON(data, &file); err != nil {
			return nil, fmt.Errorf("bridge: parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("bridge: parse %s: %w", path, err)
	}

	mappings := make([]*Mapping, 0, len(file.Mappings))
	for _, spec := range file.Mappings {
		m, err := buildMapping(spec)
		if err != nil {
			return nil, fmt.Errorf("bridge: mapping %q: %w", spec.Name, err)
		}
		mappings = append(mappings, m)
	}
	return mappings, nil
}

// yamlCompatibleJSON decodes JSON via yaml.v3, which accepts JSON as a
// subset of YAML, avoiding a second parser dependency for the ".json"
// mapping-file case.
func yamlCompatibleJSON(data []byte, out *mappingFile) error {
	return yaml.Unmarshal(data, out)
}

func buildMapping(spec mappingSpec) (*Mapping, error) {
	m := &Mapping{
		Name:           spec.Name,
		SourceProtocol: spec.SourceProtocol,
		SourceTopic:    spec.SourceTopic,
		TargetProtocol: spec.TargetProtocol,
		TargetTopic:    spec.TargetTopic,
		Direction:      Direction(orDefault(spec.Direction, string(DirectionForward))),
	}

	for _, fm := range spec.FieldMappings {
		m.FieldMappings = append(m.FieldMappings, FieldMapping{Source: fm.Source, Target: fm.Target, Type: fm.Type})
	}
	for _, f := range spec.Formulas {
		m.Formulas = append(m.Formulas, Formula{Field: f.Field, Expression: f.Expression})
	}
	for _, f := range spec.Filters {
		m.Filters = append(m.Filters, Filter{Exclude: f.Exclude, Keep: f.Keep})
	}
	for _, c := range spec.Conditions {
		m.Conditions = append(m.Conditions, Condition{
			Field:    c.Field,
			Operator: c.Operator,
			Value:    payload.FromAny(c.Value),
		})
	}
	return m, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
