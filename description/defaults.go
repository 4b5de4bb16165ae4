package description

import (
	"os"

	"gopkg.in/yaml.v2"
)

// DefaultsFile is the shape a per-cell defaults.yaml takes: per-rule-type
// maps of attribute name to default value, merged under any attribute the
// build file itself doesn't set. Mirrors how the rest of this codebase
// loads YAML-tagged config structs rather than hand-rolling a parser.
type DefaultsFile struct {
	Defaults map[string]map[string]any `yaml:"defaults"`
}

// LoadDefaultsYAML reads a defaults file from path. It exists mainly for
// tests and demos that want a fixed set of attribute defaults without
// constructing RawArgs by hand in Go.
func LoadDefaultsYAML(path string) (*DefaultsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var df DefaultsFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, err
	}
	return &df, nil
}

// ApplyDefaults returns a copy of args with any attribute missing from args
// but present in this rule type's defaults filled in.
func (d *DefaultsFile) ApplyDefaults(ruleType string, args RawArgs) RawArgs {
	defaults, ok := d.Defaults[ruleType]
	if !ok {
		return args
	}
	merged := make(RawArgs, len(args)+len(defaults))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range args {
		merged[k] = v
	}
	return merged
}
