// Package layout models layout.yaml, the per-target document that lists the
// prepare and build commands and the produced package files.
package layout

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v2"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
)

// FileName is the layout document inside a target directory.
const FileName = "layout.yaml"

// EnvironmentFileName is the optional environment document next to it.
const EnvironmentFileName = "environment.yaml"

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_]{2,}$`)

// Layout is a parsed layout.yaml.
type Layout struct {
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name"`
	Prepare  []Command `yaml:"prepare,omitempty"`
	Build    []Command `yaml:"build,omitempty"`
	Packages []string  `yaml:"packages,omitempty"`
}

// Parse decodes and validates a layout document. Unknown keys are errors.
func Parse(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.UnmarshalStrict(data, &l); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", cerrors.ErrConfig, FileName, err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate checks the whole document and reports every violation at once.
func (l *Layout) Validate() error {
	var result *multierror.Error

	if !idPattern.MatchString(l.ID) {
		result = multierror.Append(result, cerrors.Configf("%s: id %q must match [a-zA-Z0-9_]{2,}", FileName, l.ID))
	}
	if strings.TrimSpace(l.Name) == "" {
		result = multierror.Append(result, cerrors.Configf("%s: name must not be blank", FileName))
	}
	for i, cmd := range l.Prepare {
		for _, problem := range cmd.Validate() {
			result = multierror.Append(result, cerrors.Configf("%s: prepare[%d]: %s", FileName, i, problem))
		}
	}
	for i, cmd := range l.Build {
		for _, problem := range cmd.Validate() {
			result = multierror.Append(result, cerrors.Configf("%s: build[%d]: %s", FileName, i, problem))
		}
	}
	for i, pkg := range l.Packages {
		if strings.TrimSpace(pkg) == "" {
			result = multierror.Append(result, cerrors.Configf("%s: packages[%d] is blank", FileName, i))
		}
	}

	return result.ErrorOrNil()
}

// ToMap exposes the layout to templates keyed by its YAML field names.
func (l *Layout) ToMap() (map[string]interface{}, error) {
	return ToMap(l)
}

// ToMap converts any YAML-tagged value into nested map[string]interface{}
// values by round-tripping it through YAML.
func ToMap(v interface{}) (map[string]interface{}, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal %T: %w", v, err)
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return Normalize(raw).(map[string]interface{}), nil
}

// Normalize replaces the map[interface{}]interface{} values yaml.v2 produces
// with map[string]interface{} so templates and JSON encoders can use them.
func Normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = Normalize(val)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	}
	return v
}
