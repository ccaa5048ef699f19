package host

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidManifest is returned for a manifest that cannot be decoded.
var ErrInvalidManifest = errors.New("host: invalid manifest")

// Parameter describes one automatable host parameter.
type Parameter struct {
	ParamID      string  `yaml:"paramId" json:"paramId"`
	Name         string  `yaml:"name" json:"name"`
	Min          float64 `yaml:"min" json:"min"`
	Max          float64 `yaml:"max" json:"max"`
	DefaultValue float64 `yaml:"defaultValue" json:"defaultValue"`
}

// Clamp limits v to the parameter range.
func (p Parameter) Clamp(v float64) float64 {
	if v < p.Min {
		return p.Min
	}
	if v > p.Max {
		return p.Max
	}
	return v
}

// Manifest lists the plugin parameters.
type Manifest struct {
	Parameters []Parameter `yaml:"parameters" json:"parameters"`
}

// rawParameter uses pointers so absent keys can take their defaults.
type rawParameter struct {
	ParamID      *string  `yaml:"paramId"`
	Name         *string  `yaml:"name"`
	Min          *float64 `yaml:"min"`
	Max          *float64 `yaml:"max"`
	DefaultValue *float64 `yaml:"defaultValue"`
}

// ParseManifest decodes a YAML or JSON manifest. Missing fields default to
// paramId "unknown", name "Unknown", range [0, 1] and default 0. Entries that are
// not mappings are skipped.
func ParseManifest(data []byte) (Manifest, error) {
	var doc struct {
		Parameters []yaml.Node `yaml:"parameters"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	var m Manifest
	for _, node := range doc.Parameters {
		if node.Kind != yaml.MappingNode {
			continue
		}
		var raw rawParameter
		if err := node.Decode(&raw); err != nil {
			return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
		}
		m.Parameters = append(m.Parameters, Parameter{
			ParamID:      deref(raw.ParamID, "unknown"),
			Name:         deref(raw.Name, "Unknown"),
			Min:          deref(raw.Min, 0),
			Max:          deref(raw.Max, 1),
			DefaultValue: deref(raw.DefaultValue, 0),
		})
	}
	return m, nil
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// Lookup returns the parameter with the given id.
func (m Manifest) Lookup(paramID string) (Parameter, bool) {
	for _, p := range m.Parameters {
		if p.ParamID == paramID {
			return p, true
		}
	}
	return Parameter{}, false
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
