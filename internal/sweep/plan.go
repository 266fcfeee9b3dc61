package sweep

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrUnknownPreset = errors.New("sweep: unknown preset")

//go:embed presets/*.yaml
var presetFS embed.FS

// Plan describes a parameter sweep.
type Plan struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Parameters  []ParamSpec `yaml:"parameters"`
}

// ParamSpec lists explicit values or a start/end/count range. With
// spacing "log", start and end are base-10 exponents.
type ParamSpec struct {
	Name    string    `yaml:"name"`
	Values  []float64 `yaml:"values,omitempty"`
	Start   float64   `yaml:"start,omitempty"`
	End     float64   `yaml:"end,omitempty"`
	Count   int       `yaml:"count,omitempty"`
	Spacing string    `yaml:"spacing,omitempty"`
}

func (p ParamSpec) Param() (Param, error) {
	if p.Name == "" {
		return Param{}, fmt.Errorf("sweep: parameter without a name")
	}
	if len(p.Values) > 0 {
		if p.Count != 0 {
			return Param{}, fmt.Errorf("sweep: %s: values and count are exclusive", p.Name)
		}
		return Param{Name: p.Name, Values: append([]float64(nil), p.Values...)}, nil
	}

	var (
		values []float64
		err    error
	)
	switch strings.ToLower(p.Spacing) {
	case "", "linear":
		values, err = Linspace(p.Start, p.End, p.Count)
	case "log":
		values, err = Logspace(p.Start, p.End, p.Count)
	default:
		return Param{}, fmt.Errorf("sweep: %s: unknown spacing %q", p.Name, p.Spacing)
	}
	if err != nil {
		return Param{}, fmt.Errorf("%s: %w", p.Name, err)
	}
	return Param{Name: p.Name, Values: values}, nil
}

// Params expands every parameter of the plan.
func (p *Plan) Params() ([]Param, error) {
	if len(p.Parameters) == 0 {
		return nil, fmt.Errorf("sweep: plan %q has no parameters", p.Name)
	}
	params := make([]Param, 0, len(p.Parameters))
	for _, spec := range p.Parameters {
		param, err := spec.Param()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
	}
	return params, nil
}

func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("sweep: parse plan: %w", err)
	}
	return &p, nil
}

func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	p, err := ParsePlan(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Preset returns a built-in plan by name.
func Preset(name string) (*Plan, error) {
	data, err := presetFS.ReadFile(path.Join("presets", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownPreset, name, strings.Join(Presets(), ", "))
	}
	return ParsePlan(data)
}

func Presets() []string {
	entries, _ := presetFS.ReadDir("presets")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Marshal renders the plan as yaml.
func (p *Plan) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}
