// Package template renders layout files with Go text/template.
//
// Template names are slash-separated paths relative to the engine root (the
// extracted layout directory) and may not leave it. Missing map keys are
// errors, so a typo in a layout fails the build instead of rendering
// "<no value>".
package template

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
	"github.com/sfuhrm/capsula/pkg/utils/fsutil"
)

// maxIncludeDepth stops include cycles.
const maxIncludeDepth = 16

// Engine renders templates found below one root directory.
type Engine struct {
	root  string
	funcs template.FuncMap
}

// New creates an engine for templates below root.
func New(root string) *Engine {
	e := &Engine{root: root}
	e.funcs = baseFuncs()
	return e
}

// Root returns the template root directory.
func (e *Engine) Root() string {
	return e.root
}

// Funcs adds template functions, replacing built-ins of the same name.
func (e *Engine) Funcs(funcs template.FuncMap) *Engine {
	for name, fn := range funcs {
		e.funcs[name] = fn
	}
	return e
}

// Render executes the template name against data and writes the result to w.
func (e *Engine) Render(name string, data interface{}, w io.Writer) error {
	return e.render(name, data, w, 0)
}

// RenderString executes the template name and returns the output.
func (e *Engine) RenderString(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := e.Render(name, data, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderFile renders name into dst, replacing dst if it exists. The file is
// only written once rendering succeeded.
func (e *Engine) RenderFile(name string, data interface{}, dst string, perm os.FileMode) error {
	var buf bytes.Buffer
	if err := e.Render(name, data, &buf); err != nil {
		return err
	}
	if err := os.WriteFile(dst, buf.Bytes(), perm); err != nil {
		return cerrors.IOf(err, "write %s", dst)
	}
	return nil
}

// Text renders an inline template string. name is only used in error messages.
func (e *Engine) Text(name, text string, data interface{}) (string, error) {
	tmpl, err := e.parse(name, text, 0)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: template %s: %w", cerrors.ErrConfig, name, err)
	}
	return buf.String(), nil
}

func (e *Engine) render(name string, data interface{}, w io.Writer, depth int) error {
	if depth > maxIncludeDepth {
		return cerrors.Configf("template %s: include nested deeper than %d", name, maxIncludeDepth)
	}

	path, err := fsutil.Within(e.root, filepath.FromSlash(name))
	if err != nil {
		return err
	}
	text, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: template %s", cerrors.ErrNotFound, name)
		}
		return cerrors.IOf(err, "read template %s", name)
	}

	tmpl, err := e.parse(name, string(text), depth)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("%w: template %s: %w", cerrors.ErrConfig, name, err)
	}
	return nil
}

func (e *Engine) parse(name, text string, depth int) (*template.Template, error) {
	tmpl := template.New(name).
		Option("missingkey=error").
		Funcs(e.funcs).
		Funcs(template.FuncMap{
			"include": func(other string, data interface{}) (string, error) {
				var buf bytes.Buffer
				if err := e.render(other, data, &buf, depth+1); err != nil {
					return "", err
				}
				return buf.String(), nil
			},
		})
	parsed, err := tmpl.Parse(text)
	if err != nil {
		return nil, cerrors.Configf("parse template %s: %v", name, err)
	}
	return parsed, nil
}
