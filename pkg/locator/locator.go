// Package locator finds layout trees for targets and extracts them into a
// build root.
//
// Two sources exist: the layouts bundled into the binary, and a directory on
// disk with the same shape:
//
//	include/          files shared by every target
//	targets/<name>/   one layout per target
//
// Extraction writes include/ first and the target second, so a target file
// replaces an include file with the same relative name.
package locator

import (
	"fmt"
	"path/filepath"
	"strings"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
	"github.com/sfuhrm/capsula/pkg/utils/fsutil"
)

const (
	// TargetsDir holds one subdirectory per target.
	TargetsDir = "targets"
	// IncludeDir holds files shared by all targets.
	IncludeDir = "include"

	layoutSuffix = "-layout"
)

// Locator supplies layout trees for targets.
type Locator interface {
	// Targets lists the available target names, sorted.
	Targets() ([]string, error)
	// Extract materializes the layout of name as <parentDir>/<name>-layout and
	// returns that path. Unknown names fail with ErrNotFound, targets without
	// files with ErrEmptyTarget.
	Extract(parentDir, name string) (string, error)
}

// New returns a filesystem locator for a non-empty path and the bundled
// locator over index otherwise.
func New(path string, index *ResourceIndex) (Locator, error) {
	if path != "" {
		return NewPath(path)
	}
	if index == nil {
		return nil, cerrors.Configf("no layout directory given and no bundled layouts available")
	}
	return NewBundled(index), nil
}

// LayoutDir is where Extract places the layout of name below parentDir.
func LayoutDir(parentDir, name string) string {
	return filepath.Join(parentDir, name+layoutSuffix)
}

// prepareDestination validates name and replaces a stale layout directory.
func prepareDestination(parentDir, name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid target name %q", cerrors.ErrNotFound, name)
	}
	dst := LayoutDir(parentDir, name)
	if err := fsutil.DeleteRecursive(dst); err != nil {
		return "", err
	}
	if _, err := fsutil.Mkdirs(dst, 0o755); err != nil {
		return "", err
	}
	return dst, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
