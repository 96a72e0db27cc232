package animation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// overrideFile is the layout of sequences.yaml:
//
//	sequences:
//	  idle:
//	    - animation: cat-ok
//	      duration: 4s
type overrideFile struct {
	Sequences map[string][]Step `yaml:"sequences"`
}

// LoadSequences reads sequence overrides from a YAML file. A missing file
// yields an empty map and no error.
func LoadSequences(path string) (map[string][]Step, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string][]Step{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseSequences(data)
}

// ParseSequences decodes and validates sequence overrides.
func ParseSequences(data []byte) (map[string][]Step, error) {
	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sequences: %w", err)
	}
	out := make(map[string][]Step, len(f.Sequences))
	for name, steps := range f.Sequences {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return nil, errors.New("sequence with empty name")
		}
		if len(steps) == 0 {
			return nil, fmt.Errorf("sequence %q has no steps", name)
		}
		for i, st := range steps {
			if st.Animation == "" {
				return nil, fmt.Errorf("sequence %q step %d: missing animation", name, i)
			}
			if st.Duration <= 0 {
				return nil, fmt.Errorf("sequence %q step %d: duration must be positive", name, i)
			}
		}
		out[name] = steps
	}
	return out, nil
}

// MergeSequences returns a new table holding base overlaid with override.
func MergeSequences(base, override map[string][]Step) map[string][]Step {
	out := make(map[string][]Step, len(base)+len(override))
	for name, steps := range base {
		out[name] = append([]Step(nil), steps...)
	}
	for name, steps := range override {
		out[name] = append([]Step(nil), steps...)
	}
	return out
}
