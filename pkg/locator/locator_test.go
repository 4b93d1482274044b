package locator

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfuhrm/capsula/layouts"
	cerrors "github.com/sfuhrm/capsula/pkg/errors"
	"github.com/sfuhrm/capsula/pkg/utils/fsutil"
)

// tree describes a layout tree as slash path -> content.
var tree = map[string]string{
	"include/shared.txt":      "shared",
	"include/override.txt":    "from include",
	"include/nested/deep.txt": "deep",
	"targets/a/a.txt":         "only a",
	"targets/a/override.txt":  "from a",
	"targets/b/b.txt":         "only b",
	"targets/empty/.keep":     "",
}

func mapFS() fstest.MapFS {
	fsys := fstest.MapFS{}
	for p, content := range tree {
		fsys[p] = &fstest.MapFile{Data: []byte(content), Mode: 0o644}
	}
	// an empty target directory without files
	fsys["targets/void"] = &fstest.MapFile{Mode: os.ModeDir | 0o755}
	return fsys
}

func diskTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for p, content := range tree {
		path := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "targets", "void"), 0o755))
	return root
}

func locators(t *testing.T) map[string]Locator {
	idx, err := NewResourceIndex(mapFS())
	require.NoError(t, err)
	path, err := NewPath(diskTree(t))
	require.NoError(t, err)
	return map[string]Locator{
		"bundled": NewBundled(idx),
		"path":    path,
	}
}

func files(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, fsutil.WalkFiles(root, func(rel string) error {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		out[rel] = string(data)
		return nil
	}))
	return out
}

func TestTargets(t *testing.T) {
	for name, loc := range locators(t) {
		t.Run(name, func(t *testing.T) {
			targets, err := loc.Targets()
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b", "empty", "void"}, targets)
		})
	}
}

func TestExtractMergesIncludeAndTarget(t *testing.T) {
	for name, loc := range locators(t) {
		t.Run(name, func(t *testing.T) {
			parent := t.TempDir()

			dir, err := loc.Extract(parent, "b")
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(parent, "b-layout"), dir)
			assert.Equal(t, map[string]string{
				"shared.txt":      "shared",
				"override.txt":    "from include",
				"nested/deep.txt": "deep",
				"b.txt":           "only b",
			}, files(t, dir))
		})
	}
}

func TestExtractTargetOverridesInclude(t *testing.T) {
	for name, loc := range locators(t) {
		t.Run(name, func(t *testing.T) {
			dir, err := loc.Extract(t.TempDir(), "a")
			require.NoError(t, err)

			got := files(t, dir)
			assert.Equal(t, "from a", got["override.txt"])
			assert.Equal(t, "only a", got["a.txt"])
			assert.NotContains(t, got, "b.txt")
		})
	}
}

func TestExtractTwoFilesWithoutOverlap(t *testing.T) {
	fsys := fstest.MapFS{
		"include/common":  {Data: []byte("c")},
		"targets/a/one":   {Data: []byte("1")},
		"targets/b/other": {Data: []byte("2")},
	}
	idx, err := NewResourceIndex(fsys)
	require.NoError(t, err)

	dir, err := NewBundled(idx).Extract(t.TempDir(), "a")
	require.NoError(t, err)
	assert.Len(t, files(t, dir), 2)
}

func TestExtractReplacesStaleLayout(t *testing.T) {
	for name, loc := range locators(t) {
		t.Run(name, func(t *testing.T) {
			parent := t.TempDir()
			stale := filepath.Join(parent, "a-layout", "stale.txt")
			require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
			require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))

			_, err := loc.Extract(parent, "a")
			require.NoError(t, err)
			assert.NoFileExists(t, stale)
		})
	}
}

func TestExtractErrors(t *testing.T) {
	for name, loc := range locators(t) {
		t.Run(name, func(t *testing.T) {
			_, err := loc.Extract(t.TempDir(), "missing")
			assert.ErrorIs(t, err, cerrors.ErrNotFound)

			_, err = loc.Extract(t.TempDir(), "void")
			assert.ErrorIs(t, err, cerrors.ErrEmptyTarget)

			_, err = loc.Extract(t.TempDir(), "../a")
			assert.ErrorIs(t, err, cerrors.ErrNotFound)
		})
	}
}

func TestPathWithoutInclude(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "targets", "solo", "layout.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte("id: solo"), 0o644))

	loc, err := NewPath(root)
	require.NoError(t, err)
	dir, err := loc.Extract(t.TempDir(), "solo")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"layout.yaml": "id: solo"}, files(t, dir))
}

func TestNew(t *testing.T) {
	idx, err := NewResourceIndex(mapFS())
	require.NoError(t, err)

	loc, err := New("", idx)
	require.NoError(t, err)
	assert.IsType(t, &Bundled{}, loc)

	loc, err = New(diskTree(t), idx)
	require.NoError(t, err)
	assert.IsType(t, &Path{}, loc)

	_, err = New(filepath.Join(t.TempDir(), "nope"), idx)
	assert.ErrorIs(t, err, cerrors.ErrConfig)

	_, err = New("", nil)
	assert.ErrorIs(t, err, cerrors.ErrConfig)
}

func TestEmbeddedLayouts(t *testing.T) {
	idx, err := NewResourceIndex(layouts.FS)
	require.NoError(t, err)

	assert.Equal(t, []string{"centos_7", "debian_stretch"}, idx.Targets())
	for _, target := range idx.Targets() {
		_, ok := idx.Read("targets/" + target + "/layout.yaml")
		assert.True(t, ok, target)
	}
	assert.Contains(t, idx.Files("include"), "install.sh")
}
