package permissions

import (
	"fmt"
	"os"
	"os/user"
	"strconv"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
)

// Apply changes owner, group and mode of path. The three operations are
// independent: each runs only when its field is set and fails on its own,
// with an error naming the operation. Symbolic links are chowned without
// following them and never chmodded.
func Apply(path string, set PermissionSet) error {
	if set.IsEmpty() {
		return nil
	}

	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", cerrors.ErrPermission, path, err)
	}
	isLink := info.Mode()&os.ModeSymlink != 0

	if set.Owner != "" {
		if err := Chown(path, set.Owner); err != nil {
			return err
		}
	}
	if set.Group != "" {
		if err := Chgrp(path, set.Group); err != nil {
			return err
		}
	}
	if set.Mode != "" && !isLink {
		if err := Chmod(path, set.Mode); err != nil {
			return err
		}
	}
	return nil
}

// Chown assigns the named user, looked up in the user database. A numeric
// name that is not a known user is used as a raw uid.
func Chown(path, owner string) error {
	uid, err := lookupUser(owner)
	if err != nil {
		return fmt.Errorf("%w: chown %s to %s: %w", cerrors.ErrPermission, path, owner, err)
	}
	if err := os.Lchown(path, uid, -1); err != nil {
		return fmt.Errorf("%w: chown %s to %s: %w", cerrors.ErrPermission, path, owner, err)
	}
	return nil
}

// Chgrp assigns the named group.
func Chgrp(path, group string) error {
	gid, err := lookupGroup(group)
	if err != nil {
		return fmt.Errorf("%w: chgrp %s to %s: %w", cerrors.ErrPermission, path, group, err)
	}
	if err := os.Lchown(path, -1, gid); err != nil {
		return fmt.Errorf("%w: chgrp %s to %s: %w", cerrors.ErrPermission, path, group, err)
	}
	return nil
}

// Chmod applies a symbolic rwx mode.
func Chmod(path, mode string) error {
	perm, err := ParseSymbolic(mode)
	if err != nil {
		return fmt.Errorf("%w: chmod %s: %w", cerrors.ErrPermission, path, err)
	}
	if err := os.Chmod(path, os.FileMode(perm)); err != nil {
		return fmt.Errorf("%w: chmod %s to %s: %w", cerrors.ErrPermission, path, mode, err)
	}
	return nil
}

func lookupUser(name string) (int, error) {
	u, err := user.Lookup(name)
	if err == nil {
		return strconv.Atoi(u.Uid)
	}
	if id, convErr := strconv.Atoi(name); convErr == nil && id >= 0 {
		return id, nil
	}
	return 0, err
}

func lookupGroup(name string) (int, error) {
	g, err := user.LookupGroup(name)
	if err == nil {
		return strconv.Atoi(g.Gid)
	}
	if id, convErr := strconv.Atoi(name); convErr == nil && id >= 0 {
		return id, nil
	}
	return 0, err
}
