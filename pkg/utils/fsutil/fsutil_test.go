package fsutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
)

func TestWithin(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))
	require.NoError(t, os.Symlink("sub", filepath.Join(root, "inner")))

	tests := []struct {
		name    string
		rel     string
		want    string
		escapes bool
	}{
		{name: "plain file", rel: "file", want: filepath.Join(root, "file")},
		{name: "nested", rel: "sub/file", want: filepath.Join(root, "sub", "file")},
		{name: "dot segments inside", rel: "sub/../other", want: filepath.Join(root, "other")},
		{name: "internal symlink", rel: "inner/file", want: filepath.Join(root, "sub", "file")},
		{name: "parent", rel: "../file", escapes: true},
		{name: "deep parent", rel: "sub/../../file", escapes: true},
		{name: "root itself", rel: ".", escapes: true},
		{name: "empty", rel: "", escapes: true},
		{name: "absolute", rel: "/etc/passwd", escapes: true},
		{name: "symlink out of root", rel: "escape/file", escapes: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Within(root, tt.rel)
			if tt.escapes {
				require.Error(t, err)
				assert.ErrorIs(t, err, cerrors.ErrPathEscape)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsStrictDescendant(t *testing.T) {
	assert.True(t, IsStrictDescendant("/a/b", "/a/b/c"))
	assert.False(t, IsStrictDescendant("/a/b", "/a/b"))
	assert.False(t, IsStrictDescendant("/a/b", "/a/bc"))
	assert.False(t, IsStrictDescendant("/a/b", "/a"))
	assert.True(t, IsStrictDescendant("/", "/a"))
}

func TestMkdirsLeafFirst(t *testing.T) {
	root := t.TempDir()
	leaf := filepath.Join(root, "a", "b", "c")

	created, err := Mkdirs(leaf, 0o755)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a", "b", "c"),
		filepath.Join(root, "a", "b"),
		filepath.Join(root, "a"),
	}, created)
	assert.DirExists(t, leaf)

	again, err := Mkdirs(leaf, 0o755)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestMkdirsOverFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := Mkdirs(filepath.Join(file, "sub"), 0o755)
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrIO)
}

func TestCopyRecursive(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "dir", "empty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "dir", "file.txt"), []byte("hello"), 0o640))
	require.NoError(t, os.Symlink("file.txt", filepath.Join(src, "dir", "link")))

	dst := filepath.Join(t.TempDir(), "copy")
	var created []string
	err := CopyRecursive(filepath.Join(src, "dir"), dst, func(p string) error {
		rel, err := filepath.Rel(dst, p)
		require.NoError(t, err)
		created = append(created, rel)
		return nil
	})
	require.NoError(t, err)

	sort.Strings(created)
	assert.Equal(t, []string{".", "empty", "file.txt", "link"}, created)

	data, err := os.ReadFile(filepath.Join(dst, "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	info, err := os.Stat(filepath.Join(dst, "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	target, err := os.Readlink(filepath.Join(dst, "link"))
	require.NoError(t, err)
	assert.Equal(t, "file.txt", target)
}

func TestCopyRecursiveSingleFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	dst := filepath.Join(t.TempDir(), "g")

	calls := 0
	require.NoError(t, CopyRecursive(src, dst, func(string) error { calls++; return nil }))
	assert.Equal(t, 1, calls)
	assert.FileExists(t, dst)
}

func TestCopyFileReplace(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("old content"), 0o644))

	err := CopyFile(src, dst, false)
	assert.ErrorIs(t, err, cerrors.ErrIO)

	require.NoError(t, CopyFile(src, dst, true))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestDeleteRecursive(t *testing.T) {
	root := filepath.Join(t.TempDir(), "tree")
	outside := t.TempDir()
	keep := filepath.Join(outside, "keep.txt")
	require.NoError(t, os.WriteFile(keep, []byte("keep"), 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "empty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "file"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top"), []byte("y"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "a", "link")))

	require.NoError(t, DeleteRecursive(root))
	assert.NoDirExists(t, root)
	// the link was removed, not followed
	assert.FileExists(t, keep)
}

func TestDeleteRecursiveSingleFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	sibling := filepath.Join(dir, "sibling")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	require.NoError(t, os.WriteFile(sibling, nil, 0o644))

	require.NoError(t, DeleteRecursive(file))
	assert.NoFileExists(t, file)
	assert.FileExists(t, sibling)
}

func TestDeleteRecursiveMissing(t *testing.T) {
	assert.NoError(t, DeleteRecursive(filepath.Join(t.TempDir(), "missing")))
}

func TestWalkFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "x", "y"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "x", "y", "f"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "g"), nil, 0o644))

	var files []string
	require.NoError(t, WalkFiles(root, func(rel string) error {
		files = append(files, rel)
		return nil
	}))
	assert.Equal(t, []string{"g", "x/y/f"}, files)
}
