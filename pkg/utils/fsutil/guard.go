// Package fsutil holds the filesystem primitives layout commands are built
// from: a path-escape guard, tracked directory creation, recursive copy and
// recursive delete.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
)

// Within resolves rel below root and returns the path to operate on.
//
// rel must be relative and name a strict descendant of root, both lexically
// and after resolving symbolic links that already exist on disk. The
// returned path is the securejoin resolution, so later writes cannot be
// redirected by a link outside the tree. Within never touches the
// filesystem beyond reading it.
func Within(root, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("%w: empty path below %s", cerrors.ErrPathEscape, root)
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s is absolute, want a path below %s", cerrors.ErrPathEscape, rel, root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", cerrors.IOf(err, "resolve root %s", root)
	}

	lexical := filepath.Join(absRoot, rel)
	if !IsStrictDescendant(absRoot, lexical) {
		return "", fmt.Errorf("%w: %s is not below %s", cerrors.ErrPathEscape, rel, absRoot)
	}

	resolved, err := securejoin.SecureJoin(absRoot, rel)
	if err != nil {
		return "", fmt.Errorf("%w: %s below %s: %w", cerrors.ErrPathEscape, rel, absRoot, err)
	}
	if resolved == lexical {
		return resolved, nil
	}

	// A symlink on the way was rewritten. Follow it on the host to see where
	// it really points.
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", cerrors.IOf(err, "resolve root %s", absRoot)
	}
	real, err := evalExisting(lexical)
	if err != nil {
		return "", cerrors.IOf(err, "resolve %s", lexical)
	}
	if !IsStrictDescendant(realRoot, real) {
		return "", fmt.Errorf("%w: %s resolves to %s outside %s", cerrors.ErrPathEscape, rel, real, absRoot)
	}
	return resolved, nil
}

// IsStrictDescendant reports whether path lies below root, root itself
// excluded. Both paths are compared after filepath.Clean.
func IsStrictDescendant(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if path == root {
		return false
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// evalExisting resolves symlinks of the longest existing prefix of path and
// appends the not yet existing remainder.
func evalExisting(path string) (string, error) {
	var rest []string
	current := path
	for {
		if _, err := os.Lstat(current); err == nil {
			real, err := filepath.EvalSymlinks(current)
			if err != nil {
				if !os.IsNotExist(err) {
					return "", err
				}
				// Dangling link: judge by where it points.
				target, lerr := os.Readlink(current)
				if lerr != nil {
					return "", lerr
				}
				if !filepath.IsAbs(target) {
					target = filepath.Join(filepath.Dir(current), target)
				}
				real = filepath.Clean(target)
			}
			for i := len(rest) - 1; i >= 0; i-- {
				real = filepath.Join(real, rest[i])
			}
			return real, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return path, nil
		}
		rest = append(rest, filepath.Base(current))
		current = parent
	}
}
