package descriptor

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	namePattern   = regexp.MustCompile(`.* .*`)
	commitPattern = regexp.MustCompile(`^[0-9a-f]{40,}$`)

	debianPriorities    = []string{"optional", "required", "important", "standard"}
	debianArchitectures = []string{"any", "all", "source"}
	debianUrgencies     = []string{"high", "medium", "low"}
	redhatBuildArchs    = []string{"noarch", "x86_64"}
)

// Violation is one problem found by Validate.
type Violation struct {
	Path    string
	Message string
	Value   interface{}
}

func (v Violation) String() string {
	if v.Value == nil {
		return fmt.Sprintf("%q %s", v.Path, v.Message)
	}
	return fmt.Sprintf("%q %s (value: %v)", v.Path, v.Message, v.Value)
}

type violations []Violation

func (vs *violations) add(path, msg string, value interface{}) {
	*vs = append(*vs, Violation{Path: path, Message: msg, Value: value})
}

func (vs *violations) notBlank(path, value string) {
	if strings.TrimSpace(value) == "" {
		vs.add(path, "must not be blank", nil)
	}
}

func (vs *violations) oneOf(path, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	vs.add(path, "must be one of "+strings.Join(allowed, ", "), value)
}

func (vs *violations) url(path, value string) {
	if strings.TrimSpace(value) == "" {
		vs.add(path, "must not be blank", nil)
		return
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		vs.add(path, "must be a valid URL", value)
	}
}

func (vs *violations) person(path string, p NameEmail) {
	if !namePattern.MatchString(p.Name) {
		vs.add(path+".name", "must contain first and last name", p.Name)
	}
	if _, err := mail.ParseAddress(p.Email); err != nil || strings.ContainsAny(p.Email, "<> ") {
		vs.add(path+".email", "must be a well-formed email address", p.Email)
	}
}

// Validate checks the resolved descriptor and returns every violation; an
// empty result means the descriptor is usable.
func (c *Capsula) Validate() []Violation {
	var vs violations

	vs.notBlank("packageName", c.PackageName)
	vs.notBlank("buildCommand", c.BuildCommand)
	vs.notBlank("cleanCommand", c.CleanCommand)
	vs.person("author", c.Author)
	vs.person("maintainer", c.Maintainer)
	vs.url("homepage", c.Homepage)
	vs.url("git.gitUrl", c.Git.GitURL)
	if c.Git.Commit != "" && !commitPattern.MatchString(c.Git.Commit) {
		vs.add("git.commit", "must be a hex commit id of at least 40 digits", c.Git.Commit)
	}
	vs.notBlank("shortSummary", c.ShortSummary)
	if len(c.LongDescription) == 0 {
		vs.add("longDescription", "must contain at least one line", nil)
	}
	if _, ok := c.License.Info(); !ok {
		vs.add("license", "must be one of "+strings.Join(Licenses(), ", "), string(c.License))
	}

	if c.Debian != nil {
		c.Debian.validate(&vs, "debian")
		vs.oneOf("debian.priority", c.Debian.Priority, debianPriorities)
		vs.notBlank("debian.section", c.Debian.Section)
		vs.oneOf("debian.architecture", c.Debian.Architecture, debianArchitectures)
		vs.notBlank("debian.distribution", c.Debian.Suite)
		vs.oneOf("debian.urgency", c.Debian.Urgency, debianUrgencies)
	}
	if c.Redhat != nil {
		c.Redhat.validate(&vs, "redhat")
		vs.notBlank("redhat.group", c.Redhat.Group)
		vs.oneOf("redhat.buildArch", c.Redhat.BuildArch, redhatBuildArchs)
	}
	if c.Archlinux != nil {
		c.Archlinux.validate(&vs, "archlinux")
	}

	if len(c.Targets) == 0 {
		vs.add("targets", "must contain at least one target", nil)
	}
	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		path := fmt.Sprintf("targets[%d]", i)
		vs.notBlank(path, t)
		if seen[t] {
			vs.add(path, "is listed twice", t)
		}
		seen[t] = true
	}

	if len(c.Versions) == 0 {
		vs.add("versions", "must contain at least one version", nil)
	}
	now := time.Now()
	for i, v := range c.Versions {
		path := fmt.Sprintf("versions[%d]", i)
		vs.notBlank(path+".version", v.Version)
		vs.notBlank(path+".release", v.Release)
		if v.Maintainer != nil {
			vs.person(path+".maintainer", *v.Maintainer)
		}
		if v.Changes == nil {
			vs.add(path+".changes", "must be present", nil)
		}
		if v.Date.IsZero() {
			vs.add(path+".date", "must be set", nil)
		} else if v.Date.After(now) {
			vs.add(path+".date", "must not be in the future", v.Date.Format(time.RFC3339))
		}
	}

	if c.Install == nil {
		vs.add("install", "must be present", nil)
	}
	for i, cmd := range c.Install {
		for _, problem := range cmd.Validate() {
			vs.add(fmt.Sprintf("install[%d]", i), problem, nil)
		}
	}

	return vs
}

func (d Distribution) validate(vs *violations, prefix string) {
	vs.notBlank(prefix+".packageName", d.PackageName)
	vs.notBlank(prefix+".buildCommand", d.BuildCommand)
	kinds := make([]string, 0, len(d.Relations))
	for kind := range d.Relations {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	for _, name := range kinds {
		kind := RelationType(name)
		list := d.Relations[kind]
		known := false
		for _, t := range RelationTypes {
			if kind == t {
				known = true
				break
			}
		}
		if !known {
			vs.add(fmt.Sprintf("%s.relations.%s", prefix, kind), "is not a relation type", nil)
		}
		for i, r := range list {
			path := fmt.Sprintf("%s.relations.%s[%d]", prefix, kind, i)
			vs.notBlank(path+".pkg", r.Pkg)
			if r.Op != "" {
				if _, ok := Operators[r.Op]; !ok {
					vs.add(path+".op", "must be one of eq, gt, ge, lt, le", string(r.Op))
				}
			}
		}
	}
}
