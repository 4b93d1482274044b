package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v2"

	"github.com/sfuhrm/capsula/pkg/descriptor"
	cerrors "github.com/sfuhrm/capsula/pkg/errors"
	"github.com/sfuhrm/capsula/pkg/layout"
)

// Keys every environment carries. environment.yaml cannot replace them.
const (
	KeyCapsula = "capsula"
	KeyVersion = "version"
	KeySource  = "source"
	KeyTarget  = "target"
	KeyLayout  = "layout"
)

var reservedKeys = map[string]bool{
	KeyCapsula: true,
	KeyVersion: true,
	KeySource:  true,
	KeyTarget:  true,
	KeyLayout:  true,
}

// IsReserved reports whether key is owned by the builder.
func IsReserved(key string) bool {
	return reservedKeys[key]
}

// Environment is the data templates of one target are rendered against.
// Nested values use map[string]interface{} keyed by YAML names.
type Environment map[string]interface{}

func baseEnvironment(desc *descriptor.Capsula, layoutDir, workDir string) (Environment, error) {
	capsula, err := desc.ToMap()
	if err != nil {
		return nil, cerrors.Configf("descriptor: %v", err)
	}
	version, err := descriptor.VersionMap(desc.Current())
	if err != nil {
		return nil, cerrors.Configf("version: %v", err)
	}
	return Environment{
		KeyCapsula: capsula,
		KeyVersion: version,
		KeySource:  layoutDir,
		KeyTarget:  workDir,
	}, nil
}

// Merge copies extra into e, skipping reserved keys. The skipped keys are
// returned sorted.
func (e Environment) Merge(extra map[string]interface{}) []string {
	var ignored []string
	for key, value := range extra {
		if IsReserved(key) {
			ignored = append(ignored, key)
			continue
		}
		e[key] = value
	}
	sort.Strings(ignored)
	return ignored
}

// composeEnvironment builds the base environment and merges the expanded
// environment.yaml into it when the layout has one.
func (b *Builder) composeEnvironment() error {
	env, err := baseEnvironment(b.opts.Descriptor, b.layoutDir, b.workDir)
	if err != nil {
		return err
	}
	b.env = env

	path := filepath.Join(b.layoutDir, layout.EnvironmentFileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			b.logger.Debug("🔍 No environment document", "path", path)
			return nil
		}
		return cerrors.IOf(err, "stat %s", path)
	}

	data, err := b.expand(layout.EnvironmentFileName)
	if err != nil {
		return err
	}
	var extra map[string]interface{}
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return fmt.Errorf("%w: %s: %w", cerrors.ErrConfig, layout.EnvironmentFileName, err)
	}
	normalized, _ := layout.Normalize(extra).(map[string]interface{})
	for _, key := range b.env.Merge(normalized) {
		b.logger.Warn("⚠️ Ignoring reserved key in environment document", "key", key, "path", path)
	}
	b.logger.Debug("🌍 Environment composed", "keys", len(b.env))
	return nil
}

// expand renders a layout document against the current environment and
// keeps the result as a temp file in the build root.
func (b *Builder) expand(name string) ([]byte, error) {
	text, err := b.engine.RenderString(name, map[string]interface{}(b.env))
	if err != nil {
		return nil, err
	}

	file, err := os.CreateTemp(b.buildRoot, b.opts.Target+"-*-"+name)
	if err != nil {
		return nil, cerrors.IOf(err, "create expanded %s", name)
	}
	if _, err := file.WriteString(text); err != nil {
		file.Close()
		return nil, cerrors.IOf(err, "write %s", file.Name())
	}
	if err := file.Close(); err != nil {
		return nil, cerrors.IOf(err, "close %s", file.Name())
	}
	b.expanded = append(b.expanded, file.Name())
	b.logger.Debug("📝 Expanded document", "template", name, "path", file.Name())
	return []byte(text), nil
}
