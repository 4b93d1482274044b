package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
)

// Exists reports whether path exists without following a final symlink.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Mkdirs creates path and any missing parents with mode and returns the
// directories it created, leaf first. An already existing directory yields an
// empty slice.
func Mkdirs(path string, mode os.FileMode) ([]string, error) {
	path = filepath.Clean(path)

	var missing []string
	for current := path; ; {
		info, err := os.Stat(current)
		if err == nil {
			if !info.IsDir() {
				return nil, fmt.Errorf("%w: %s exists and is not a directory", cerrors.ErrIO, current)
			}
			break
		}
		if !os.IsNotExist(err) {
			return nil, cerrors.IOf(err, "stat %s", current)
		}
		missing = append(missing, current)
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	created := make([]string, 0, len(missing))
	for i := len(missing) - 1; i >= 0; i-- {
		if err := os.Mkdir(missing[i], mode); err != nil {
			return nil, cerrors.IOf(err, "mkdir %s", missing[i])
		}
		created = append(created, missing[i])
	}

	// leaf first
	for i, j := 0, len(created)-1; i < j; i, j = i+1, j-1 {
		created[i], created[j] = created[j], created[i]
	}
	return created, nil
}

// CopyRecursive copies src to dst. Directories are walked, regular files are
// copied with their permission bits and symbolic links are recreated as
// links. Any other file type is rejected. onCreate, when not nil, is called
// for every path created below and including dst, directories after their
// content.
func CopyRecursive(src, dst string, onCreate func(path string) error) error {
	info, err := os.Lstat(src)
	if err != nil {
		return cerrors.IOf(err, "stat %s", src)
	}

	switch mode := info.Mode(); {
	case mode&os.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return cerrors.IOf(err, "readlink %s", src)
		}
		if err := os.Symlink(target, dst); err != nil {
			return cerrors.IOf(err, "symlink %s", dst)
		}
	case mode.IsDir():
		if err := os.Mkdir(dst, mode.Perm()|0o700); err != nil {
			return cerrors.IOf(err, "mkdir %s", dst)
		}
		entries, err := os.ReadDir(src)
		if err != nil {
			return cerrors.IOf(err, "read directory %s", src)
		}
		for _, entry := range entries {
			if err := CopyRecursive(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name()), onCreate); err != nil {
				return err
			}
		}
		// Directories are reported after their content so a restrictive
		// mode set by onCreate cannot block the copy.
	case mode.IsRegular():
		if err := CopyFile(src, dst, false); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unsupported file type %s for %s", cerrors.ErrIO, mode.Type(), src)
	}

	return notify(onCreate, dst)
}

func notify(onCreate func(string) error, path string) error {
	if onCreate == nil {
		return nil
	}
	return onCreate(path)
}

// CopyFile copies one regular file keeping its permission bits. With replace
// an existing destination is truncated, otherwise it is an error.
func CopyFile(src, dst string, replace bool) error {
	in, err := os.Open(src)
	if err != nil {
		return cerrors.IOf(err, "open %s", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return cerrors.IOf(err, "stat %s", src)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", cerrors.ErrIO, src)
	}

	flags := os.O_WRONLY | os.O_CREATE
	if replace {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	out, err := os.OpenFile(dst, flags, info.Mode().Perm())
	if err != nil {
		return cerrors.IOf(err, "create %s", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return cerrors.IOf(err, "copy %s to %s", src, dst)
	}
	if err := out.Close(); err != nil {
		return cerrors.IOf(err, "close %s", dst)
	}
	return nil
}

// DeleteRecursive removes path and everything below it. Symbolic links are
// removed, never followed. A missing path is not an error.
func DeleteRecursive(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return cerrors.IOf(err, "stat %s", path)
	}

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return cerrors.IOf(err, "read directory %s", path)
		}
		for _, entry := range entries {
			if err := DeleteRecursive(filepath.Join(path, entry.Name())); err != nil {
				return err
			}
		}
	}

	if err := os.Remove(path); err != nil {
		return cerrors.IOf(err, "delete %s", path)
	}
	return nil
}

// WalkFiles calls fn for every regular file and symlink below root with
// its slash-separated path relative to root.
func WalkFiles(root string, fn func(rel string) error) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel))
	})
}
