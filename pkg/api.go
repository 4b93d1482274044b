// Package pkg is the entry point for embedding capsula: it wires descriptor
// loading, layout location, build roots and the multi-target driver.
package pkg

import (
	"context"
	"io"

	"github.com/hashicorp/go-hclog"

	"github.com/sfuhrm/capsula/internal/workspace"
	"github.com/sfuhrm/capsula/layouts"
	"github.com/sfuhrm/capsula/pkg/builder"
	"github.com/sfuhrm/capsula/pkg/descriptor"
	cerrors "github.com/sfuhrm/capsula/pkg/errors"
	"github.com/sfuhrm/capsula/pkg/driver"
	"github.com/sfuhrm/capsula/pkg/locator"
)

// BuildOptions configures Build.
type BuildOptions struct {
	DescriptorPath string
	OutDir         string
	BuildRoot      string // used as is when set
	BuildDir       string // parent of a fresh build root otherwise
	Layouts        string // external layout tree, empty for the bundled one
	Index          *locator.ResourceIndex
	Targets        []string
	StopAfter      builder.Stage
	Parallel       bool
	Jobs           int
	Verbose        bool
	Debug          bool
	Logger         hclog.Logger
	Stdout         io.Writer
	Stderr         io.Writer
}

// BundledIndex indexes the layouts compiled into the binary.
func BundledIndex() (*locator.ResourceIndex, error) {
	return locator.NewResourceIndex(layouts.FS)
}

// ListTargets returns the targets available from the layout tree at path,
// or from index when path is empty.
func ListTargets(path string, index *locator.ResourceIndex) ([]string, error) {
	if path == "" && index == nil {
		var err error
		if index, err = BundledIndex(); err != nil {
			return nil, err
		}
	}
	loc, err := locator.New(path, index)
	if err != nil {
		return nil, err
	}
	return loc.Targets()
}

// Build loads and validates the descriptor, then builds the requested
// targets. A temporary build root is removed afterwards unless debug mode
// keeps it or the run stopped before the cleanup stage.
func Build(ctx context.Context, opts BuildOptions) (*driver.Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	desc, err := descriptor.Load(opts.DescriptorPath)
	if err != nil {
		return nil, err
	}
	if violations := VerifyDescriptorWithLogger(desc, logger); len(violations) > 0 {
		return nil, cerrors.Configf("descriptor %s has %d violations", opts.DescriptorPath, len(violations))
	}
	if opts.OutDir == "" && opts.StopAfter.Reaches(builder.StageCopyResult) {
		return nil, cerrors.Configf("no output directory given")
	}

	index := opts.Index
	if index == nil && opts.Layouts == "" {
		if index, err = BundledIndex(); err != nil {
			return nil, err
		}
	}
	loc, err := locator.New(opts.Layouts, index)
	if err != nil {
		return nil, err
	}

	root, err := workspace.Resolve(opts.BuildRoot, opts.BuildDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("📁 Build root", "path", root.Path, "temporary", root.Temporary, "layouts", loc)

	report, runErr := driver.Run(ctx, driver.Options{
		Descriptor: desc,
		Locator:    loc,
		Targets:    opts.Targets,
		BuildRoot:  root.Path,
		OutDir:     opts.OutDir,
		StopAfter:  opts.StopAfter,
		Parallel:   opts.Parallel,
		Jobs:       opts.Jobs,
		Verbose:    opts.Verbose,
		Debug:      opts.Debug,
		Logger:     logger,
		Stdout:     opts.Stdout,
		Stderr:     opts.Stderr,
	})

	if !opts.Debug && opts.StopAfter.Reaches(builder.StageCleanup) {
		if err := root.Remove(); err != nil {
			logger.Warn("⚠️ Could not remove build root", "path", root.Path, "error", err)
		}
	}
	return report, runErr
}
