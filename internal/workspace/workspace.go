// Package workspace manages build roots, the directories that hold the
// extracted layouts and working directories of one run.
package workspace

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
	"github.com/sfuhrm/capsula/pkg/utils/fsutil"
)

// EnvBuildDir overrides the directory fresh build roots are created in.
const EnvBuildDir = "CAPSULA_BUILD_DIR"

// CacheRoot returns the directory fresh build roots are created in when no
// base is configured.
func CacheRoot() string {
	if dir := os.Getenv(EnvBuildDir); dir != "" {
		return dir
	}
	return filepath.Join(xdg.CacheHome, "capsula")
}

// BuildRoot is the directory one run builds in.
type BuildRoot struct {
	Path      string
	Temporary bool // created by Resolve, removed by Remove
}

// Resolve returns the build root to use. An explicit directory is used as
// is and created when missing. Otherwise a fresh directory is created below
// base, or below CacheRoot when base is empty.
func Resolve(explicit, base string) (*BuildRoot, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return nil, cerrors.IOf(err, "resolve build root %s", explicit)
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, cerrors.IOf(err, "create build root %s", abs)
		}
		return &BuildRoot{Path: abs}, nil
	}

	if base == "" {
		base = CacheRoot()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, cerrors.IOf(err, "create build directory %s", base)
	}
	dir, err := os.MkdirTemp(base, "build-")
	if err != nil {
		return nil, cerrors.IOf(err, "create build root below %s", base)
	}
	return &BuildRoot{Path: dir, Temporary: true}, nil
}

// Remove deletes a temporary build root. Explicit roots are left alone.
func (r *BuildRoot) Remove() error {
	if !r.Temporary {
		return nil
	}
	return fsutil.DeleteRecursive(r.Path)
}
