package layout

import (
	"fmt"
	"sort"
	"strings"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
	"github.com/sfuhrm/capsula/pkg/utils/permissions"
	"github.com/sfuhrm/capsula/pkg/utils/shellparse"
)

// Kind names the verb of a command.
type Kind string

const (
	KindCopy     Kind = "copy"
	KindTemplate Kind = "template"
	KindMkdir    Kind = "mkdir"
	KindRun      Kind = "run"
)

var kinds = map[string]Kind{
	string(KindCopy):     KindCopy,
	string(KindTemplate): KindTemplate,
	string(KindMkdir):    KindMkdir,
	string(KindRun):      KindRun,
}

// TargetCommand is the part shared by commands that create something in the
// target working directory.
type TargetCommand struct {
	To                        string `yaml:"to"`
	permissions.PermissionSet `yaml:",inline"`
}

// Permissions returns the owner/group/mode set attached to the command.
func (t TargetCommand) Permissions() permissions.PermissionSet {
	return t.PermissionSet
}

func (t TargetCommand) validate(kind Kind) []string {
	var problems []string
	if strings.TrimSpace(t.To) == "" {
		problems = append(problems, fmt.Sprintf("%s: to is required", kind))
	}
	if t.Mode != "" && !permissions.ValidMode(t.Mode) {
		problems = append(problems, fmt.Sprintf("%s: mode %q must match ([r-][w-][x-]){3}", kind, t.Mode))
	}
	return problems
}

// CopyCommand copies a layout file or directory into the target tree.
type CopyCommand struct {
	From          string `yaml:"from"`
	TargetCommand `yaml:",inline"`
}

// TemplateCommand renders a layout template into the target tree.
type TemplateCommand struct {
	From          string `yaml:"from"`
	TargetCommand `yaml:",inline"`
}

// MkdirCommand creates a directory chain in the target tree.
type MkdirCommand struct {
	TargetCommand `yaml:",inline"`
}

// RunCommand executes an external program in the target tree.
type RunCommand struct {
	Command string `yaml:"command"`
}

// UnmarshalYAML accepts both `run: {command: make}` and the short `run: make`.
func (r *RunCommand) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var short string
	if err := unmarshal(&short); err == nil {
		r.Command = short
		return nil
	}
	type plain RunCommand
	var full plain
	if err := unmarshal(&full); err != nil {
		return err
	}
	*r = RunCommand(full)
	return nil
}

// Args tokenizes the command line.
func (r RunCommand) Args() ([]string, error) {
	args, err := shellparse.Split(r.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: run %q: %w", cerrors.ErrConfig, r.Command, err)
	}
	if len(args) == 0 {
		return nil, cerrors.Configf("run: empty command")
	}
	return args, nil
}

// Command is exactly one of copy, template, mkdir or run. Decoding rejects
// documents that populate none, several or unknown verbs.
type Command struct {
	Copy     *CopyCommand     `yaml:"copy,omitempty"`
	Template *TemplateCommand `yaml:"template,omitempty"`
	Mkdir    *MkdirCommand    `yaml:"mkdir,omitempty"`
	Run      *RunCommand      `yaml:"run,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Command) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw map[string]interface{}
	if err := unmarshal(&raw); err != nil {
		return cerrors.Configf("command must be a mapping with one of copy, template, mkdir, run: %v", err)
	}

	var found []string
	for key := range raw {
		if _, ok := kinds[key]; !ok {
			return cerrors.Configf("unknown command %q", key)
		}
		found = append(found, key)
	}
	sort.Strings(found)
	switch len(found) {
	case 0:
		return cerrors.Configf("empty command, want one of copy, template, mkdir, run")
	case 1:
	default:
		return cerrors.Configf("command has several verbs %s, want exactly one", strings.Join(found, ", "))
	}

	type plain Command
	var decoded plain
	if err := unmarshal(&decoded); err != nil {
		return cerrors.Configf("%s: %v", found[0], err)
	}
	*c = Command(decoded)

	// `mkdir:` with a null body decodes to a nil pointer.
	if c.Kind() == "" {
		return cerrors.Configf("%s: empty body", found[0])
	}
	return nil
}

// Kind returns the populated verb, or "" for a zero Command.
func (c Command) Kind() Kind {
	switch {
	case c.Copy != nil:
		return KindCopy
	case c.Template != nil:
		return KindTemplate
	case c.Mkdir != nil:
		return KindMkdir
	case c.Run != nil:
		return KindRun
	}
	return ""
}

// Target returns the shared target part of copy, template and mkdir.
func (c Command) Target() (TargetCommand, bool) {
	switch c.Kind() {
	case KindCopy:
		return c.Copy.TargetCommand, true
	case KindTemplate:
		return c.Template.TargetCommand, true
	case KindMkdir:
		return c.Mkdir.TargetCommand, true
	}
	return TargetCommand{}, false
}

// String describes the command for logs.
func (c Command) String() string {
	switch c.Kind() {
	case KindCopy:
		return fmt.Sprintf("copy %s -> %s", c.Copy.From, c.Copy.To)
	case KindTemplate:
		return fmt.Sprintf("template %s -> %s", c.Template.From, c.Template.To)
	case KindMkdir:
		return fmt.Sprintf("mkdir %s", c.Mkdir.To)
	case KindRun:
		return fmt.Sprintf("run %s", c.Run.Command)
	}
	return "empty command"
}

// Validate lists everything wrong with the command.
func (c Command) Validate() []string {
	var populated int
	for _, set := range []bool{c.Copy != nil, c.Template != nil, c.Mkdir != nil, c.Run != nil} {
		if set {
			populated++
		}
	}
	if populated != 1 {
		return []string{fmt.Sprintf("command populates %d verbs, want exactly one", populated)}
	}

	var problems []string
	switch c.Kind() {
	case KindCopy:
		if strings.TrimSpace(c.Copy.From) == "" {
			problems = append(problems, "copy: from is required")
		}
		problems = append(problems, c.Copy.validate(KindCopy)...)
	case KindTemplate:
		if strings.TrimSpace(c.Template.From) == "" {
			problems = append(problems, "template: from is required")
		}
		problems = append(problems, c.Template.validate(KindTemplate)...)
	case KindMkdir:
		problems = append(problems, c.Mkdir.validate(KindMkdir)...)
	case KindRun:
		if _, err := c.Run.Args(); err != nil {
			problems = append(problems, err.Error())
		}
	}
	return problems
}
