package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
)

func TestResolveExplicit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "explicit", "root")

	root, err := Resolve(dir, "")
	require.NoError(t, err)
	assert.Equal(t, dir, root.Path)
	assert.False(t, root.Temporary)
	assert.DirExists(t, dir)

	require.NoError(t, root.Remove())
	assert.DirExists(t, dir, "explicit roots are never removed")
}

func TestResolveFresh(t *testing.T) {
	base := t.TempDir()

	first, err := Resolve("", base)
	require.NoError(t, err)
	second, err := Resolve("", base)
	require.NoError(t, err)

	assert.True(t, first.Temporary)
	assert.NotEqual(t, first.Path, second.Path)
	assert.Equal(t, base, filepath.Dir(first.Path))

	require.NoError(t, first.Remove())
	assert.NoDirExists(t, first.Path)
	assert.DirExists(t, second.Path)
}

func TestCacheRootFromEnvironment(t *testing.T) {
	base := filepath.Join(t.TempDir(), "cache")
	t.Setenv(EnvBuildDir, base)
	assert.Equal(t, base, CacheRoot())

	root, err := Resolve("", "")
	require.NoError(t, err)
	assert.Equal(t, base, filepath.Dir(root.Path))
}

func TestStateRoundTrip(t *testing.T) {
	buildRoot := t.TempDir()
	workDir := filepath.Join(buildRoot, "debian_stretch-build")
	require.NoError(t, os.Mkdir(workDir, 0o755))

	require.NoError(t, MarkFailed(buildRoot, State{
		Target:     "debian_stretch",
		Stage:      "build",
		CommandID:  "b0",
		WorkingDir: workDir,
	}, errors.New("boom")))
	assert.FileExists(t, filepath.Join(buildRoot, "debian_stretch-build.state.json"))

	state, err := ReadState(buildRoot, "debian_stretch")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, state.Status)
	assert.Equal(t, "boom", state.Error)
	assert.Equal(t, "b0", state.CommandID)
	assert.False(t, state.Timestamp.IsZero())

	require.NoError(t, MarkComplete(buildRoot, *state))
	state, err = ReadState(buildRoot, "debian_stretch")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, state.Status)
	assert.Empty(t, state.Error)
}

func TestReadStateMissing(t *testing.T) {
	_, err := ReadState(t.TempDir(), "nope")
	assert.ErrorIs(t, err, cerrors.ErrNotFound)
}

func TestRetained(t *testing.T) {
	buildRoot := t.TempDir()
	for _, target := range []string{"zeta", "alpha", "gone"} {
		workDir := filepath.Join(buildRoot, target+"-build")
		if target != "gone" {
			require.NoError(t, os.Mkdir(workDir, 0o755))
		}
		require.NoError(t, MarkComplete(buildRoot, State{Target: target, WorkingDir: workDir}))
	}

	states, err := Retained(buildRoot)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "alpha", states[0].Target)
	assert.Equal(t, "zeta", states[1].Target)
}
