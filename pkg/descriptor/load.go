package descriptor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
)

// FileName is the conventional descriptor name.
const FileName = "capsula.yaml"

// Debian, redhat and version defaults applied by ApplyDefaults.
const (
	DefaultBranch       = "master"
	DefaultPriority     = "optional"
	DefaultDistribution = "unstable"
	DefaultUrgency      = "medium"
	DefaultBuildArch    = "noarch"
	DefaultRelationType = Depends
)

// Load reads, parses and resolves a descriptor file. It does not validate;
// call Validate on the result.
func Load(path string) (*Capsula, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: descriptor %s", cerrors.ErrNotFound, path)
		}
		return nil, cerrors.IOf(err, "read descriptor %s", path)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a descriptor document and resolves it.
func Parse(data []byte) (*Capsula, error) {
	var c Capsula
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", cerrors.ErrConfig, err)
	}
	c.Resolve()
	return &c, nil
}

// Resolve computes release numbers and fills defaults. It is idempotent.
func (c *Capsula) Resolve() {
	c.CalculateReleaseNumbers()
	c.ApplyDefaults()
}

// CalculateReleaseNumbers sets each version's ReleaseNumber to the count of
// older entries (later in the list) with the same version string, so the
// history [1.1, 1.0, 1.0] numbers as [0, 1, 0].
func (c *Capsula) CalculateReleaseNumbers() {
	seen := make(map[string]int, len(c.Versions))
	for i := len(c.Versions) - 1; i >= 0; i-- {
		v := &c.Versions[i]
		v.ReleaseNumber = seen[v.Version]
		seen[v.Version]++
	}
}

// ApplyDefaults fills every optional field that has a default. Distribution
// sections inherit packageName and buildCommand from the top level, version
// entries inherit the maintainer.
func (c *Capsula) ApplyDefaults() {
	if c.Git.Branch == "" {
		c.Git.Branch = DefaultBranch
	}

	if c.Debian != nil {
		c.inherit(&c.Debian.Distribution)
		if c.Debian.Priority == "" {
			c.Debian.Priority = DefaultPriority
		}
		if c.Debian.Suite == "" {
			c.Debian.Suite = DefaultDistribution
		}
		if c.Debian.Urgency == "" {
			c.Debian.Urgency = DefaultUrgency
		}
	}
	if c.Redhat != nil {
		c.inherit(&c.Redhat.Distribution)
		if c.Redhat.BuildArch == "" {
			c.Redhat.BuildArch = DefaultBuildArch
		}
	}
	if c.Archlinux != nil {
		c.inherit(&c.Archlinux.Distribution)
	}

	for i := range c.Versions {
		if c.Versions[i].Maintainer == nil {
			m := c.Maintainer
			c.Versions[i].Maintainer = &m
		}
	}
}

func (c *Capsula) inherit(d *Distribution) {
	if d.PackageName == "" {
		d.PackageName = c.PackageName
	}
	if d.BuildCommand == "" {
		d.BuildCommand = c.BuildCommand
	}
	for kind, list := range d.Relations {
		for i := range list {
			if list[i].Type == "" {
				list[i].Type = kind
			}
		}
	}
}

// WriteFile stores the resolved descriptor as YAML.
func (c *Capsula) WriteFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return cerrors.IOf(err, "write %s", path)
	}
	return nil
}
