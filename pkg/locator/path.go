package locator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
	"github.com/sfuhrm/capsula/pkg/utils/fsutil"
)

// Path serves layouts from a directory on disk.
type Path struct {
	root string
}

// NewPath creates a locator for the layout tree at root.
func NewPath(root string) (*Path, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, cerrors.IOf(err, "resolve %s", root)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, cerrors.Configf("layout directory %s does not exist or is no directory", root)
	}
	return &Path{root: abs}, nil
}

// Targets implements Locator.
func (p *Path) Targets() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(p.root, TargetsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, cerrors.IOf(err, "list targets in %s", p.root)
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Extract implements Locator.
func (p *Path) Extract(parentDir, name string) (string, error) {
	targets, err := p.Targets()
	if err != nil {
		return "", err
	}
	if !contains(targets, name) {
		return "", fmt.Errorf("%w: target %q in %s, available: %v", cerrors.ErrNotFound, name, p.root, targets)
	}

	targetDir := filepath.Join(p.root, TargetsDir, name)
	count := 0
	if err := fsutil.WalkFiles(targetDir, func(string) error { count++; return nil }); err != nil {
		return "", cerrors.IOf(err, "scan %s", targetDir)
	}
	if count == 0 {
		return "", fmt.Errorf("%w: %s", cerrors.ErrEmptyTarget, name)
	}

	dst, err := prepareDestination(parentDir, name)
	if err != nil {
		return "", err
	}
	includeDir := filepath.Join(p.root, IncludeDir)
	if fsutil.Exists(includeDir) {
		if err := mergeTree(includeDir, dst); err != nil {
			return "", err
		}
	}
	if err := mergeTree(targetDir, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (p *Path) String() string {
	return p.root
}

// mergeTree copies the contents of src into the existing directory dst,
// replacing files that already exist.
func mergeTree(src, dst string) error {
	return fsutil.WalkFiles(src, func(rel string) error {
		from := filepath.Join(src, filepath.FromSlash(rel))
		to := filepath.Join(dst, filepath.FromSlash(rel))
		if _, err := fsutil.Mkdirs(filepath.Dir(to), 0o755); err != nil {
			return err
		}
		if err := fsutil.DeleteRecursive(to); err != nil {
			return err
		}
		return fsutil.CopyRecursive(from, to, nil)
	})
}
