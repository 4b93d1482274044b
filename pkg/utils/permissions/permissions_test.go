package permissions

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
)

func TestOctal(t *testing.T) {
	tests := []struct {
		mode  string
		octal string
	}{
		{"rwxr-xr-x", "0755"},
		{"rw-r--r--", "0644"},
		{"rwx------", "0700"},
		{"---------", "0000"},
		{"r--r-----", "0440"},
		{"rwxrwxrwx", "0777"},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			set := PermissionSet{Mode: tt.mode}
			assert.Equal(t, tt.octal, set.Octal())

			perm, err := ParseSymbolic(tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.mode, FormatSymbolic(perm))
		})
	}
}

func TestOctalEmptyMode(t *testing.T) {
	assert.Equal(t, "", PermissionSet{}.Octal())
	_, ok := PermissionSet{}.FileMode()
	assert.False(t, ok)
}

func TestValidMode(t *testing.T) {
	valid := []string{"rwxr-xr-x", "---------", "r--r--r--"}
	invalid := []string{"", "rwx", "rwxr-xr-xx", "755", "xwrr-xr-x", "rwsr-xr-x"}

	for _, m := range valid {
		assert.True(t, ValidMode(m), m)
	}
	for _, m := range invalid {
		assert.False(t, ValidMode(m), m)
		_, err := ParseSymbolic(m)
		assert.Error(t, err, m)
	}
}

func TestParseOctalString(t *testing.T) {
	tests := []struct {
		input string
		want  uint16
	}{
		{"755", 0o755},
		{"0755", 0o755},
		{"0o644", 0o644},
	}
	for _, tt := range tests {
		got, err := ParseOctalString(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, err := ParseOctalString("9z")
	assert.Error(t, err)
}

func TestApplyMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	require.NoError(t, Apply(path, PermissionSet{Mode: "rwxr-x---"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), info.Mode().Perm())
}

func TestApplyEmptySetIsNoop(t *testing.T) {
	assert.NoError(t, Apply(filepath.Join(t.TempDir(), "missing"), PermissionSet{}))
}

func TestApplyCurrentOwnerAndGroup(t *testing.T) {
	current, err := user.Current()
	require.NoError(t, err)
	group, err := user.LookupGroupId(current.Gid)
	if err != nil {
		t.Skipf("primary group not resolvable: %v", err)
	}

	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	assert.NoError(t, Apply(path, PermissionSet{Owner: current.Username, Group: group.Name}))
}

func TestApplyUnknownOwnerFailsOnlyThatOperation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	err := Apply(path, PermissionSet{Owner: "no-such-user-capsula"})
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrPermission)
	assert.Contains(t, err.Error(), "chown")

	err = Apply(path, PermissionSet{Group: "no-such-group-capsula"})
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrPermission)
	assert.Contains(t, err.Error(), "chgrp")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestApplySymlinkSkipsChmod(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, "link")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o600))
	require.NoError(t, os.Symlink("target", link))

	require.NoError(t, Apply(link, PermissionSet{Mode: "rwxrwxrwx"}))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
