package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
)

// clearEnv blanks every variable Load reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvConfig, EnvLogLevel, EnvBuildDir, EnvLayouts, EnvParallel, EnvJobs} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(FlagLogLevel, "", "")
	flags.String(FlagLayouts, "", "")
	flags.String(FlagOut, "", "")
	flags.Bool(FlagParallel, false, "")
	flags.Bool(FlagVerbose, false, "")
	flags.Bool(FlagDebug, false, "")
	flags.Int(FlagJobs, 0, "")
	return flags
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfig, filepath.Join(t.TempDir(), "absent.toml"))

	_, err := Load("")
	assert.ErrorIs(t, err, cerrors.ErrNotFound)

	t.Setenv(EnvConfig, writeConfig(t, ""))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Parallel)
	assert.Zero(t, cfg.Jobs)
}

func TestPrecedence(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
log_level = "debug"
build_dir = "/var/cache/capsula"
parallel = true
jobs = 2
out = "file-out"
layouts = "file-layouts"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/cache/capsula", cfg.BuildDir)
	assert.True(t, cfg.Parallel)
	assert.Equal(t, 2, cfg.Jobs)

	t.Setenv(EnvJobs, "4")
	t.Setenv(EnvLayouts, "env-layouts")
	t.Setenv(EnvParallel, "false")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Jobs)
	assert.Equal(t, "env-layouts", cfg.Layouts)
	assert.False(t, cfg.Parallel)
	assert.Equal(t, "file-out", cfg.Out)

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--jobs", "8", "--out", "flag-out", "--parallel"}))
	require.NoError(t, cfg.ApplyFlags(flags))
	assert.Equal(t, 8, cfg.Jobs)
	assert.Equal(t, "flag-out", cfg.Out)
	assert.True(t, cfg.Parallel)
	assert.Equal(t, "debug", cfg.LogLevel, "unset flags keep lower layers")
	assert.Equal(t, "env-layouts", cfg.Layouts)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "unknown_key = 1\n"))
	assert.ErrorIs(t, err, cerrors.ErrConfig)

	_, err = Load(writeConfig(t, "jobs = \"many\"\n"))
	assert.ErrorIs(t, err, cerrors.ErrConfig)

	_, err = Load(writeConfig(t, "jobs = -1\n"))
	assert.ErrorIs(t, err, cerrors.ErrConfig)

	empty := writeConfig(t, "")
	t.Setenv(EnvParallel, "sometimes")
	_, err = Load(empty)
	assert.ErrorIs(t, err, cerrors.ErrConfig)

	t.Setenv(EnvParallel, "")
	t.Setenv(EnvJobs, "x")
	_, err = Load(empty)
	assert.ErrorIs(t, err, cerrors.ErrConfig)

	cfg := Default()
	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--jobs=-3"}))
	assert.ErrorIs(t, cfg.ApplyFlags(flags), cerrors.ErrConfig)
}

func TestXDGSearch(t *testing.T) {
	clearEnv(t)
	t.Cleanup(xdg.Reload)
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("XDG_CONFIG_DIRS", filepath.Join(home, "none"))
	xdg.Reload()

	assert.Empty(t, Locate(""))

	path := filepath.Join(home, "capsula", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("verbose = true\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Source)
	assert.True(t, cfg.Verbose)
}
