package template

import (
	"fmt"
	"reflect"
	"strings"
	"text/template"
	"time"

	"github.com/sfuhrm/capsula/pkg/utils/permissions"
)

// debianDate is the RFC 2822 form debian/changelog expects.
const debianDate = "Mon, 02 Jan 2006 15:04:05 -0700"

var relationOperators = map[string]string{
	"eq": "=",
	"gt": ">",
	"ge": ">=",
	"lt": "<",
	"le": "<=",
}

func baseFuncs() template.FuncMap {
	return template.FuncMap{
		"join":      join,
		"indent":    indent,
		"upper":     strings.ToUpper,
		"lower":     strings.ToLower,
		"trim":      strings.TrimSpace,
		"replace":   replace,
		"default":   defaultValue,
		"now":       time.Now,
		"rfc2822":   rfc2822,
		"date":      formatDate,
		"relation":  relation,
		"relations": relations,
		"list":      list,
		"octal":     octal,
	}
}

// join concatenates the elements of a list with sep.
func join(sep string, list interface{}) (string, error) {
	items, err := toStrings(list)
	if err != nil {
		return "", err
	}
	return strings.Join(items, sep), nil
}

// indent prefixes every non-empty line of s with n spaces.
func indent(n int, s string) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}

func replace(old, repl, s string) string {
	return strings.ReplaceAll(s, old, repl)
}

// defaultValue returns value unless it is empty, then def. Meant for pipes:
// {{ .capsula.homepage | default "n/a" }}.
func defaultValue(def interface{}, value ...interface{}) interface{} {
	if len(value) == 0 || isEmpty(value[0]) {
		return def
	}
	return value[0]
}

func list(items ...interface{}) []interface{} {
	return items
}

// octal turns a symbolic mode such as "rwxr-xr-x" into "0755". Octal input
// like "755" or "0o755" is normalized to the same four digit form.
func octal(mode string) (string, error) {
	perm, err := permissions.ParseSymbolic(mode)
	if err != nil {
		var octErr error
		if perm, octErr = permissions.ParseOctalString(mode); octErr != nil {
			return "", err
		}
	}
	return permissions.FormatOctal(perm), nil
}

// rfc2822 formats a time or a date string the way debian changelogs do.
func rfc2822(v interface{}) (string, error) {
	t, err := toTime(v)
	if err != nil {
		return "", err
	}
	return t.Format(debianDate), nil
}

func formatDate(layout string, v interface{}) (string, error) {
	t, err := toTime(v)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}

// relation renders one {pkg, op, version} map as "pkg (op version)".
func relation(v interface{}) (string, error) {
	m, ok := toStringMap(v)
	if !ok {
		return "", fmt.Errorf("relation: want a map, got %T", v)
	}
	pkg := fmt.Sprint(m["pkg"])
	if isEmpty(m["pkg"]) {
		return "", fmt.Errorf("relation: missing pkg")
	}
	if isEmpty(m["op"]) || isEmpty(m["version"]) {
		return pkg, nil
	}
	op, ok := relationOperators[fmt.Sprint(m["op"])]
	if !ok {
		return "", fmt.Errorf("relation %s: unknown operator %v", pkg, m["op"])
	}
	return fmt.Sprintf("%s (%s %v)", pkg, op, m["version"]), nil
}

// relations renders all relations of kind (depends, recommends, ...) of a
// distribution section as a comma separated list.
func relations(kind string, section interface{}) (string, error) {
	m, ok := toStringMap(section)
	if !ok {
		return "", nil
	}
	all, ok := toStringMap(m["relations"])
	if !ok {
		return "", nil
	}
	list, ok := all[kind]
	if !ok || list == nil {
		return "", nil
	}
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice {
		return "", fmt.Errorf("relations %s: want a list, got %T", kind, list)
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		s, err := relation(rv.Index(i).Interface())
		if err != nil {
			return "", err
		}
		out = append(out, s)
	}
	return strings.Join(out, ", "), nil
}

func toTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t != nil {
			return *t, nil
		}
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable date %q", t)
	}
	return time.Time{}, fmt.Errorf("want a date, got %T", v)
}

func toStrings(list interface{}) ([]string, error) {
	switch l := list.(type) {
	case nil:
		return nil, nil
	case []string:
		return l, nil
	case string:
		return []string{l}, nil
	}
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("want a list, got %T", list)
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, fmt.Sprint(rv.Index(i).Interface()))
	}
	return out, nil
}

func toStringMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	case reflect.Bool:
		return !rv.Bool()
	}
	return false
}
