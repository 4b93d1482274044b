// Package config layers the capsula settings: built-in defaults, then the
// TOML config file, then CAPSULA_* environment variables, then command line
// flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/spf13/pflag"

	"github.com/sfuhrm/capsula/internal/workspace"
	cerrors "github.com/sfuhrm/capsula/pkg/errors"
	"github.com/sfuhrm/capsula/pkg/logging"
)

// Environment variables read by Load.
const (
	EnvConfig   = "CAPSULA_CONFIG"
	EnvLogLevel = "CAPSULA_LOG_LEVEL"
	EnvBuildDir = workspace.EnvBuildDir
	EnvLayouts  = "CAPSULA_LAYOUTS"
	EnvParallel = "CAPSULA_PARALLEL"
	EnvJobs     = "CAPSULA_JOBS"
)

// SearchPath is the config file looked up in the XDG config directories.
const SearchPath = "capsula/config.toml"

// Config holds the settings that may come from several layers.
type Config struct {
	LogLevel string
	BuildDir string // directory fresh build roots are created in
	Layouts  string // external layout tree, empty for the bundled layouts
	Parallel bool
	Jobs     int
	Verbose  bool
	Debug    bool
	Out      string

	// Source is the config file that was read, empty when none was found.
	Source string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel: logging.DefaultLevel,
	}
}

// config.toml key mapping.
type fileConfig struct {
	LogLevel string `toml:"log_level"`
	BuildDir string `toml:"build_dir"`
	Layouts  string `toml:"layouts"`
	Parallel bool   `toml:"parallel"`
	Jobs     int    `toml:"jobs"`
	Verbose  bool   `toml:"verbose"`
	Debug    bool   `toml:"debug"`
	Out      string `toml:"out"`
}

// Locate returns the config file to read: explicit when given, else
// CAPSULA_CONFIG, else the first capsula/config.toml in the XDG config
// directories. It returns "" when there is none.
func Locate(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	path, err := xdg.SearchConfigFile(SearchPath)
	if err != nil {
		return ""
	}
	return path
}

// Load returns the defaults overlaid with the config file and the
// environment. A named config file must exist; a searched one may not.
func Load(explicit string) (Config, error) {
	cfg := Default()
	if path := Locate(explicit); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if cfg.Jobs < 0 {
		return cfg, cerrors.Configf("jobs must not be negative, got %d", cfg.Jobs)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: config file %s", cerrors.ErrNotFound, path)
		}
		return cerrors.Configf("load config %s: %v", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return cerrors.Configf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	if meta.IsDefined("log_level") {
		c.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("build_dir") {
		c.BuildDir = strings.TrimSpace(raw.BuildDir)
	}
	if meta.IsDefined("layouts") {
		c.Layouts = strings.TrimSpace(raw.Layouts)
	}
	if meta.IsDefined("parallel") {
		c.Parallel = raw.Parallel
	}
	if meta.IsDefined("jobs") {
		c.Jobs = raw.Jobs
	}
	if meta.IsDefined("verbose") {
		c.Verbose = raw.Verbose
	}
	if meta.IsDefined("debug") {
		c.Debug = raw.Debug
	}
	if meta.IsDefined("out") {
		c.Out = strings.TrimSpace(raw.Out)
	}
	c.Source = path
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvBuildDir); v != "" {
		c.BuildDir = v
	}
	if v := os.Getenv(EnvLayouts); v != "" {
		c.Layouts = v
	}
	if v := os.Getenv(EnvParallel); v != "" {
		parallel, err := strconv.ParseBool(v)
		if err != nil {
			return cerrors.Configf("%s=%q is not a boolean", EnvParallel, v)
		}
		c.Parallel = parallel
	}
	if v := os.Getenv(EnvJobs); v != "" {
		jobs, err := strconv.Atoi(v)
		if err != nil {
			return cerrors.Configf("%s=%q is not a number", EnvJobs, v)
		}
		c.Jobs = jobs
	}
	return nil
}

// Flag names ApplyFlags reads.
const (
	FlagLogLevel = "log-level"
	FlagLayouts  = "layouts"
	FlagParallel = "parallel"
	FlagJobs     = "jobs"
	FlagVerbose  = "verbose"
	FlagDebug    = "debug"
	FlagOut      = "out"
)

// ApplyFlags overlays the flags that were set explicitly. Flags missing
// from the set are ignored.
func (c *Config) ApplyFlags(flags *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && changed(flags, name) {
			*dst, err = flags.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if err == nil && changed(flags, name) {
			*dst, err = flags.GetBool(name)
		}
	}

	str(FlagLogLevel, &c.LogLevel)
	str(FlagLayouts, &c.Layouts)
	str(FlagOut, &c.Out)
	boolean(FlagParallel, &c.Parallel)
	boolean(FlagVerbose, &c.Verbose)
	boolean(FlagDebug, &c.Debug)
	if err == nil && changed(flags, FlagJobs) {
		c.Jobs, err = flags.GetInt(FlagJobs)
	}
	if err != nil {
		return cerrors.Configf("flags: %v", err)
	}
	if c.Jobs < 0 {
		return cerrors.Configf("jobs must not be negative, got %d", c.Jobs)
	}
	return nil
}

func changed(flags *pflag.FlagSet, name string) bool {
	f := flags.Lookup(name)
	return f != nil && f.Changed
}
