// Package driver builds several targets of one descriptor, serially or in
// parallel, and aggregates their outcomes.
package driver

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/sfuhrm/capsula/internal/workspace"
	"github.com/sfuhrm/capsula/pkg/builder"
	"github.com/sfuhrm/capsula/pkg/descriptor"
	cerrors "github.com/sfuhrm/capsula/pkg/errors"
	"github.com/sfuhrm/capsula/pkg/locator"
	"github.com/sfuhrm/capsula/pkg/utils/fsutil"
)

// Options configures a multi-target run.
type Options struct {
	Descriptor *descriptor.Capsula
	Locator    locator.Locator
	Targets    []string // subset of the descriptor targets; empty builds all
	BuildRoot  string
	OutDir     string
	StopAfter  builder.Stage
	Parallel   bool
	Jobs       int  // parallel bound, 0 is unbounded
	Verbose    bool // echo child output
	Debug      bool // keep working directories and record their state
	Logger     hclog.Logger
	Stdout     io.Writer
	Stderr     io.Writer
}

// TargetReport is the outcome of one target. Err is nil on success.
type TargetReport struct {
	Target string
	Result *builder.Result
	Err    error
}

// Report holds the outcome of every target in input order.
type Report struct {
	Targets   []TargetReport
	BuildRoot string
	Duration  time.Duration
}

// Failed returns the reports of failed targets.
func (r *Report) Failed() []TargetReport {
	var out []TargetReport
	for _, t := range r.Targets {
		if t.Err != nil {
			out = append(out, t)
		}
	}
	return out
}

// Err combines all target failures, in input order, or returns nil.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, t := range r.Failed() {
		result = multierror.Append(result, t.Err)
	}
	return result.ErrorOrNil()
}

// SelectTargets returns the targets to build: all descriptor targets when
// requested is empty, else requested after checking each is declared.
func SelectTargets(desc *descriptor.Capsula, requested []string) ([]string, error) {
	if len(requested) == 0 {
		if len(desc.Targets) == 0 {
			return nil, cerrors.Configf("descriptor declares no targets")
		}
		return append([]string(nil), desc.Targets...), nil
	}

	seen := make(map[string]bool, len(requested))
	var selected []string
	for _, name := range requested {
		if !desc.HasTarget(name) {
			return nil, cerrors.Configf("target %s is not declared in the descriptor, declared: %v", name, desc.Targets)
		}
		if !seen[name] {
			seen[name] = true
			selected = append(selected, name)
		}
	}
	return selected, nil
}

// Run builds the selected targets. A failing target never stops the
// others. The returned error is the report's combined error, or a
// configuration error raised before any target started.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Descriptor == nil || opts.Locator == nil {
		return nil, cerrors.Configf("descriptor and locator are required")
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	targets, err := SelectTargets(opts.Descriptor, opts.Targets)
	if err != nil {
		return nil, err
	}

	if opts.Debug && opts.StopAfter.Reaches(builder.StageCopyResult) {
		path := filepath.Join(opts.OutDir, descriptor.FileName)
		if _, err := fsutil.Mkdirs(opts.OutDir, 0o755); err != nil {
			return nil, err
		}
		if err := opts.Descriptor.WriteFile(path); err != nil {
			return nil, err
		}
		opts.Logger.Debug("📝 Resolved descriptor written", "path", path)
	}

	started := time.Now()
	report := &Report{Targets: make([]TargetReport, len(targets)), BuildRoot: opts.BuildRoot}
	opts.Logger.Info("🎯 Building targets", "targets", targets, "parallel", opts.Parallel, "jobs", opts.Jobs)

	if opts.Parallel {
		var g errgroup.Group
		if opts.Jobs > 0 {
			g.SetLimit(opts.Jobs)
		}
		for i, target := range targets {
			i, target := i, target
			g.Go(func() error {
				report.Targets[i] = runTarget(ctx, opts, target)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, target := range targets {
			report.Targets[i] = runTarget(ctx, opts, target)
		}
	}

	report.Duration = time.Since(started)
	if failed := report.Failed(); len(failed) > 0 {
		opts.Logger.Error("❌ Targets failed", "failed", len(failed), "total", len(targets))
	} else {
		opts.Logger.Info("✅ All targets built", "total", len(targets), "duration", report.Duration.Round(time.Millisecond))
	}
	return report, report.Err()
}

func runTarget(ctx context.Context, opts Options, target string) TargetReport {
	logger := opts.Logger.With("target", target)
	report := TargetReport{Target: target}

	layoutDir, err := opts.Locator.Extract(opts.BuildRoot, target)
	if err != nil {
		report.Err = scoped(target, builder.StageReadDescriptor, err)
		logger.Error("❌ Layout extraction failed", "locator", opts.Locator, "error", err)
		return report
	}
	logger.Debug("📂 Layout extracted", "layout", layoutDir)

	b, err := builder.New(builder.Options{
		Descriptor: opts.Descriptor,
		BuildRoot:  opts.BuildRoot,
		Target:     target,
		LayoutDir:  layoutDir,
		StopAfter:  opts.StopAfter,
		Verbose:    opts.Verbose,
		Keep:       opts.Debug,
		Logger:     opts.Logger,
		Stdout:     opts.Stdout,
		Stderr:     opts.Stderr,
	})
	if err != nil {
		report.Err = scoped(target, builder.StageReadDescriptor, err)
		logger.Error("❌ Builder setup failed", "error", err)
		return report
	}

	report.Result, report.Err = b.Run(ctx, opts.OutDir)

	if opts.Debug {
		recordState(logger, opts.BuildRoot, b, report.Err)
	} else if opts.StopAfter.Reaches(builder.StageCleanup) {
		if err := fsutil.DeleteRecursive(layoutDir); err != nil {
			logger.Warn("⚠️ Could not remove layout directory", "layout", layoutDir, "error", err)
		}
	}

	if report.Err != nil {
		logger.Error("❌ Target failed", "error", report.Err)
	}
	return report
}

func recordState(logger hclog.Logger, buildRoot string, b *builder.Builder, buildErr error) {
	state := workspace.State{
		Target:        b.Target(),
		WorkingDir:    b.WorkingDir(),
		LayoutDir:     b.LayoutDir(),
		ExpandedFiles: b.ExpandedFiles(),
	}

	var err error
	if buildErr != nil {
		var be *cerrors.BuildError
		if errors.As(buildErr, &be) {
			state.Stage = be.Stage
			state.CommandID = be.CommandID
		}
		err = workspace.MarkFailed(buildRoot, state, buildErr)
	} else {
		err = workspace.MarkComplete(buildRoot, state)
	}
	if err != nil {
		logger.Warn("⚠️ Could not record working directory state", "error", err)
		return
	}
	logger.Info("🔍 Working directory retained", "working_dir", b.WorkingDir(), "layout", b.LayoutDir())
}

// scoped wraps err into a BuildError unless it already is one.
func scoped(target string, stage builder.Stage, err error) error {
	var be *cerrors.BuildError
	if errors.As(err, &be) {
		return err
	}
	return &cerrors.BuildError{Target: target, Stage: stage.String(), Err: err}
}
