// Package builder runs the build pipeline of one target: it composes the
// template environment, expands and parses layout.yaml and executes the
// prepare and build commands inside a fresh working directory.
package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sfuhrm/capsula/pkg/descriptor"
	cerrors "github.com/sfuhrm/capsula/pkg/errors"
	"github.com/sfuhrm/capsula/pkg/layout"
	"github.com/sfuhrm/capsula/pkg/logging"
	"github.com/sfuhrm/capsula/pkg/template"
	"github.com/sfuhrm/capsula/pkg/utils/fsutil"
	"github.com/sfuhrm/capsula/pkg/utils/permissions"
)

// Options configures one target build.
type Options struct {
	Descriptor *descriptor.Capsula
	BuildRoot  string
	Target     string
	LayoutDir  string
	StopAfter  Stage // the zero value stops after reading the descriptor
	Verbose    bool  // echo child output to Stdout and Stderr
	Keep       bool  // never delete the working directory
	Logger     hclog.Logger
	Stdout     io.Writer
	Stderr     io.Writer
}

// Result is the outcome of a successful Run.
type Result struct {
	Target     string
	WorkingDir string
	LayoutDir  string
	Artifacts  []string
	Kept       bool
	Duration   time.Duration
}

// Builder builds one target. It is not safe for concurrent use; parallel
// builds use one Builder per target.
type Builder struct {
	opts      Options
	logger    hclog.Logger
	buildRoot string
	layoutDir string
	workDir   string
	engine    *template.Engine
	env       Environment
	layout    *layout.Layout
	expanded  []string
	stdout    *logging.PrefixWriter
	stderr    *logging.PrefixWriter
}

// WorkingDirName is the name of the working directory of target below the
// build root.
func WorkingDirName(target string) string {
	return target + "-build"
}

// New checks the layout directory and creates the working directory. The
// working directory must not exist yet.
func New(opts Options) (*Builder, error) {
	if opts.Descriptor == nil {
		return nil, cerrors.Configf("no descriptor given")
	}
	if strings.TrimSpace(opts.Target) == "" {
		return nil, cerrors.Configf("no target given")
	}

	layoutDir, err := filepath.Abs(opts.LayoutDir)
	if err != nil {
		return nil, cerrors.IOf(err, "resolve %s", opts.LayoutDir)
	}
	info, err := os.Stat(layoutDir)
	if err != nil || !info.IsDir() {
		return nil, cerrors.Configf("layout directory %s does not exist or is no directory", layoutDir)
	}
	if !fsutil.Exists(filepath.Join(layoutDir, layout.FileName)) {
		return nil, cerrors.Configf("layout directory %s has no %s", layoutDir, layout.FileName)
	}

	buildRoot, err := filepath.Abs(opts.BuildRoot)
	if err != nil {
		return nil, cerrors.IOf(err, "resolve %s", opts.BuildRoot)
	}
	if err := os.MkdirAll(buildRoot, permissions.DefaultDirPerms); err != nil {
		return nil, cerrors.IOf(err, "create build root %s", buildRoot)
	}
	workDir := filepath.Join(buildRoot, WorkingDirName(opts.Target))
	if err := os.Mkdir(workDir, permissions.DefaultDirPerms); err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: working directory %s already exists", cerrors.ErrIO, workDir)
		}
		return nil, cerrors.IOf(err, "create working directory %s", workDir)
	}

	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named(opts.Target).With("target", opts.Target)

	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	prefix := "[" + opts.Target + "] "

	logger.Debug("📁 Working directory created", "working_dir", workDir, "layout", layoutDir)
	return &Builder{
		opts:      opts,
		logger:    logger,
		buildRoot: buildRoot,
		layoutDir: layoutDir,
		workDir:   workDir,
		engine:    template.New(layoutDir),
		stdout:    logging.NewPrefixWriter(prefix, opts.Stdout),
		stderr:    logging.NewPrefixWriter(prefix, opts.Stderr),
	}, nil
}

// Target returns the target name.
func (b *Builder) Target() string { return b.opts.Target }

// WorkingDir returns the absolute working directory.
func (b *Builder) WorkingDir() string { return b.workDir }

// LayoutDir returns the absolute layout directory.
func (b *Builder) LayoutDir() string { return b.layoutDir }

// Layout returns the parsed layout, nil before Build read it.
func (b *Builder) Layout() *layout.Layout { return b.layout }

// Environment returns the template environment, nil before Build composed it.
func (b *Builder) Environment() Environment { return b.env }

// ExpandedFiles returns the expanded layout documents kept in the build root.
func (b *Builder) ExpandedFiles() []string {
	out := make([]string, len(b.expanded))
	copy(out, b.expanded)
	return out
}

// Build reads the layout and runs the prepare and build stages permitted by
// StopAfter. The first failure aborts the build with a BuildError.
func (b *Builder) Build(ctx context.Context) error {
	started := time.Now()
	b.logger.Info("🏗️ Building target", "stop_after", b.opts.StopAfter.String())

	if err := b.readLayout(); err != nil {
		return b.fail(StageReadDescriptor, "", err)
	}
	if b.opts.StopAfter.Reaches(StagePrepare) {
		if err := b.runStage(ctx, StagePrepare, "p", b.layout.Prepare); err != nil {
			return err
		}
	}
	if b.opts.StopAfter.Reaches(StageBuild) {
		if err := b.runStage(ctx, StageBuild, "b", b.layout.Build); err != nil {
			return err
		}
	}

	b.logger.Info("✅ Target built", "duration", time.Since(started).Round(time.Millisecond))
	return nil
}

func (b *Builder) readLayout() error {
	if err := b.composeEnvironment(); err != nil {
		return err
	}
	data, err := b.expand(layout.FileName)
	if err != nil {
		return err
	}
	parsed, err := layout.Parse(data)
	if err != nil {
		return err
	}
	layoutMap, err := parsed.ToMap()
	if err != nil {
		return cerrors.Configf("%s: %v", layout.FileName, err)
	}
	b.layout = parsed
	b.env[KeyLayout] = layoutMap
	b.logger.Info("📋 Layout loaded", "id", parsed.ID, "name", parsed.Name,
		"prepare", len(parsed.Prepare), "build", len(parsed.Build), "packages", len(parsed.Packages))
	return nil
}

func (b *Builder) runStage(ctx context.Context, stage Stage, prefix string, commands []layout.Command) error {
	logger := b.logger.With("stage", stage.String())
	logger.Info("🔄 Entering stage", "commands", len(commands))

	for i, cmd := range commands {
		id := fmt.Sprintf("%s%d", prefix, i)
		if err := ctx.Err(); err != nil {
			return b.fail(stage, id, fmt.Errorf("%w: %w", cerrors.ErrInterrupted, err))
		}
		cmdLogger := logger.With("cmd_id", id)
		cmdLogger.Debug("▶️ Executing command", "command", cmd.String())
		if err := b.execute(ctx, cmdLogger, cmd); err != nil {
			cmdLogger.Error("❌ Command failed", "command", cmd.String(), "error", err)
			return b.fail(stage, id, err)
		}
	}
	return nil
}

func (b *Builder) execute(ctx context.Context, logger hclog.Logger, cmd layout.Command) error {
	switch cmd.Kind() {
	case layout.KindCopy:
		return b.copyCommand(logger, cmd.Copy)
	case layout.KindMkdir:
		return b.mkdirCommand(logger, cmd.Mkdir)
	case layout.KindTemplate:
		return b.templateCommand(logger, cmd.Template)
	case layout.KindRun:
		return b.runCommand(ctx, logger, cmd.Run)
	}
	return cerrors.Configf("empty command")
}

// CopyResults copies every package file of the layout into outDir, named by
// its base name. Existing files are replaced.
func (b *Builder) CopyResults(outDir string) ([]string, error) {
	if b.layout == nil {
		return nil, b.fail(StageCopyResult, "", cerrors.Configf("layout not read yet"))
	}
	if _, err := fsutil.Mkdirs(outDir, permissions.DefaultDirPerms); err != nil {
		return nil, b.fail(StageCopyResult, "", err)
	}

	artifacts := make([]string, 0, len(b.layout.Packages))
	for _, entry := range b.layout.Packages {
		src, err := fsutil.Within(b.workDir, entry)
		if err != nil {
			return artifacts, b.fail(StageCopyResult, "", err)
		}
		if !fsutil.Exists(src) {
			return artifacts, b.fail(StageCopyResult, "", fmt.Errorf("%w: package %s in %s", cerrors.ErrNotFound, entry, b.workDir))
		}
		dst := filepath.Join(outDir, filepath.Base(src))
		if err := fsutil.CopyFile(src, dst, true); err != nil {
			return artifacts, b.fail(StageCopyResult, "", err)
		}
		b.logger.Info("📦 Package copied", "from", entry, "to", dst)
		artifacts = append(artifacts, dst)
	}
	return artifacts, nil
}

// Cleanup deletes the working directory and the expanded documents.
func (b *Builder) Cleanup() error {
	if err := fsutil.DeleteRecursive(b.workDir); err != nil {
		return b.fail(StageCleanup, "", err)
	}
	for _, path := range b.expanded {
		if err := fsutil.DeleteRecursive(path); err != nil {
			return b.fail(StageCleanup, "", err)
		}
	}
	b.expanded = nil
	b.logger.Debug("🧹 Working directory removed", "working_dir", b.workDir)
	return nil
}

// Run builds the target, copies the results into outDir and cleans up, each
// step only when StopAfter reaches it. Without Keep a failed build still
// removes its working directory.
func (b *Builder) Run(ctx context.Context, outDir string) (*Result, error) {
	started := time.Now()
	result := &Result{
		Target:     b.opts.Target,
		WorkingDir: b.workDir,
		LayoutDir:  b.layoutDir,
		Kept:       true,
	}

	err := b.Build(ctx)
	if err == nil && b.opts.StopAfter.Reaches(StageCopyResult) {
		result.Artifacts, err = b.CopyResults(outDir)
	}
	if b.opts.StopAfter.Reaches(StageCleanup) && !b.opts.Keep {
		if cerr := b.Cleanup(); cerr != nil {
			if err == nil {
				err = cerr
			} else {
				b.logger.Warn("⚠️ Cleanup after failure failed", "error", cerr)
			}
		} else {
			result.Kept = false
		}
	}

	result.Duration = time.Since(started)
	return result, err
}

func (b *Builder) fail(stage Stage, commandID string, err error) error {
	return &cerrors.BuildError{
		Target:    b.opts.Target,
		Stage:     stage.String(),
		CommandID: commandID,
		Err:       err,
	}
}
