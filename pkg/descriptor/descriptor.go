// Package descriptor models capsula.yaml, the document that describes one
// piece of software across all packaging targets.
//
// A descriptor is loaded once, resolved (release numbers and defaults) and
// read-only afterwards; builders for different targets share it.
package descriptor

import (
	"fmt"
	"regexp"
	"time"

	"github.com/sfuhrm/capsula/pkg/layout"
)

// NameEmail is a person, rendered "Name <email>".
type NameEmail struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

func (n NameEmail) String() string {
	return fmt.Sprintf("%s <%s>", n.Name, n.Email)
}

// GitRepository points at the sources.
type GitRepository struct {
	GitURL string `yaml:"gitUrl"`
	Branch string `yaml:"branch,omitempty"`
	Commit string `yaml:"commit,omitempty"`
}

var gitProjectPattern = regexp.MustCompile(`.*/([^/]*)\.git$`)

// Project derives the project name from the repository URL, e.g.
// "capsula" for https://github.com/sfuhrm/capsula.git.
func (g GitRepository) Project() (string, error) {
	m := gitProjectPattern.FindStringSubmatch(g.GitURL)
	if m == nil {
		return "", fmt.Errorf("can not determine git project from url %q", g.GitURL)
	}
	return m[1], nil
}

// Version is one entry of the version history. Entries are ordered newest
// first.
type Version struct {
	Version       string     `yaml:"version"`
	Release       string     `yaml:"release"`
	ReleaseNumber int        `yaml:"releaseNumber"`
	Maintainer    *NameEmail `yaml:"maintainer,omitempty"`
	Changes       []string   `yaml:"changes"`
	Date          time.Time  `yaml:"date"`
}

// RelationType is the kind of a package relation.
type RelationType string

const (
	Depends    RelationType = "depends"
	Recommends RelationType = "recommends"
	Suggests   RelationType = "suggests"
	Conflicts  RelationType = "conflicts"
	Breaks     RelationType = "breaks"
	Provides   RelationType = "provides"
	Replaces   RelationType = "replaces"
)

// RelationTypes lists the known relation kinds in rendering order.
var RelationTypes = []RelationType{Depends, Recommends, Suggests, Conflicts, Breaks, Provides, Replaces}

// VersionOperator constrains a relation's version.
type VersionOperator string

// Operators maps each operator to its rendered form.
var Operators = map[VersionOperator]string{
	"eq": "=",
	"gt": ">",
	"ge": ">=",
	"lt": "<",
	"le": "<=",
}

// Relation is a dependency on another package.
type Relation struct {
	Pkg     string          `yaml:"pkg"`
	Type    RelationType    `yaml:"type,omitempty"`
	Op      VersionOperator `yaml:"op,omitempty"`
	Version string          `yaml:"version,omitempty"`
}

func (r Relation) String() string {
	if r.Op == "" || r.Version == "" {
		return r.Pkg
	}
	return fmt.Sprintf("%s (%s %s)", r.Pkg, Operators[r.Op], r.Version)
}

// Distribution holds what every distribution section shares. PackageName
// and BuildCommand default to the top level values.
type Distribution struct {
	PackageName  string                      `yaml:"packageName,omitempty"`
	BuildCommand string                      `yaml:"buildCommand,omitempty"`
	Relations    map[RelationType][]Relation `yaml:"relations,omitempty"`
}

// RelationsFor returns the relations of one kind, possibly none.
func (d Distribution) RelationsFor(t RelationType) []Relation {
	return d.Relations[t]
}

// Debian is the debian section.
type Debian struct {
	Distribution `yaml:",inline"`
	Priority     string `yaml:"priority,omitempty"`
	Section      string `yaml:"section"`
	Architecture string `yaml:"architecture"`
	Suite        string `yaml:"distribution,omitempty"`
	Urgency      string `yaml:"urgency,omitempty"`
}

// Redhat is the redhat section.
type Redhat struct {
	Distribution `yaml:",inline"`
	Group        string `yaml:"group"`
	BuildArch    string `yaml:"buildArch,omitempty"`
}

// Archlinux is the archlinux section.
type Archlinux struct {
	Distribution `yaml:",inline"`
}

// Capsula is the whole descriptor.
type Capsula struct {
	PackageName     string           `yaml:"packageName"`
	BuildCommand    string           `yaml:"buildCommand"`
	CleanCommand    string           `yaml:"cleanCommand"`
	Author          NameEmail        `yaml:"author"`
	Maintainer      NameEmail        `yaml:"maintainer"`
	Homepage        string           `yaml:"homepage"`
	Git             GitRepository    `yaml:"git"`
	ShortSummary    string           `yaml:"shortSummary"`
	LongDescription []string         `yaml:"longDescription"`
	License         License          `yaml:"license"`
	Debian          *Debian          `yaml:"debian,omitempty"`
	Redhat          *Redhat          `yaml:"redhat,omitempty"`
	Archlinux       *Archlinux       `yaml:"archlinux,omitempty"`
	Targets         []string         `yaml:"targets"`
	Versions        []Version        `yaml:"versions"`
	Install         []layout.Command `yaml:"install"`
}

// Current returns the newest version entry, or nil for an empty history.
func (c *Capsula) Current() *Version {
	if len(c.Versions) == 0 {
		return nil
	}
	return &c.Versions[0]
}

// HasTarget reports whether name is one of the declared targets.
func (c *Capsula) HasTarget(name string) bool {
	for _, t := range c.Targets {
		if t == name {
			return true
		}
	}
	return false
}

// ToMap exposes the descriptor to templates keyed by YAML field names, plus
// derived values under "gitProject" and "licenseInfo".
func (c *Capsula) ToMap() (map[string]interface{}, error) {
	m, err := layout.ToMap(c)
	if err != nil {
		return nil, err
	}
	if project, err := c.Git.Project(); err == nil {
		m["gitProject"] = project
	}
	if info, ok := c.License.Info(); ok {
		m["licenseInfo"] = map[string]interface{}{
			"name":          info.Name,
			"textUrl":       info.TextURL,
			"debianName":    info.DebianName,
			"debianFile":    info.DebianFile(),
			"archlinuxName": info.ArchlinuxName,
		}
	}
	return m, nil
}

// VersionMap exposes one version entry the same way.
func VersionMap(v *Version) (map[string]interface{}, error) {
	if v == nil {
		return map[string]interface{}{}, nil
	}
	return layout.ToMap(v)
}
