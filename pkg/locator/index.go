package locator

import (
	"io/fs"
	"path"
	"sort"
	"strings"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
)

// ResourceIndex is an in-memory copy of a layout tree. It is built once,
// before any build starts, and never changes afterwards, so builders running
// in parallel may share it.
type ResourceIndex struct {
	files   map[string][]byte // slash path below the tree root -> content
	targets []string
}

// NewResourceIndex reads the targets/ and include/ subtrees of fsys.
// Missing subtrees are treated as empty.
func NewResourceIndex(fsys fs.FS) (*ResourceIndex, error) {
	idx := &ResourceIndex{files: make(map[string][]byte)}
	seen := make(map[string]bool)

	for _, prefix := range []string{IncludeDir, TargetsDir} {
		if _, err := fs.Stat(fsys, prefix); err != nil {
			continue
		}
		err := fs.WalkDir(fsys, prefix, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if prefix == TargetsDir && d.IsDir() {
				if rest := strings.TrimPrefix(p, TargetsDir+"/"); rest != p && !strings.Contains(rest, "/") {
					if !seen[rest] {
						seen[rest] = true
						idx.targets = append(idx.targets, rest)
					}
				}
			}
			if !d.Type().IsRegular() {
				return nil
			}
			data, err := fs.ReadFile(fsys, p)
			if err != nil {
				return err
			}
			idx.files[p] = data
			return nil
		})
		if err != nil {
			return nil, cerrors.IOf(err, "index %s", prefix)
		}
	}

	sort.Strings(idx.targets)
	return idx, nil
}

// Targets returns the target names, sorted.
func (idx *ResourceIndex) Targets() []string {
	out := make([]string, len(idx.targets))
	copy(out, idx.targets)
	return out
}

// Files returns the paths below dir, relative to dir and sorted.
func (idx *ResourceIndex) Files(dir string) []string {
	prefix := path.Clean(dir) + "/"
	var out []string
	for p := range idx.files {
		if strings.HasPrefix(p, prefix) {
			out = append(out, strings.TrimPrefix(p, prefix))
		}
	}
	sort.Strings(out)
	return out
}

// Read returns the content of one file.
func (idx *ResourceIndex) Read(p string) ([]byte, bool) {
	data, ok := idx.files[p]
	return data, ok
}
