package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/sfuhrm/capsula/pkg/descriptor"
	"github.com/sfuhrm/capsula/pkg/driver"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	noteColor = color.New(color.FgYellow)
)

// printSummary writes one line per target and returns an error when any
// target failed.
func printSummary(w io.Writer, report *driver.Report, debugMode bool) error {
	fmt.Fprintln(w)
	for _, t := range report.Targets {
		if t.Err != nil {
			failColor.Fprintf(w, "❌ %s", t.Target)
			fmt.Fprintf(w, ": %v\n", t.Err)
			continue
		}
		okColor.Fprintf(w, "✅ %s", t.Target)
		fmt.Fprintf(w, " (%s)\n", t.Result.Duration.Round(time.Millisecond))
		for _, artifact := range t.Result.Artifacts {
			fmt.Fprintf(w, "   📦 %s\n", artifact)
		}
	}

	if debugMode {
		noteColor.Fprintf(w, "🔍 build root kept at %s\n", report.BuildRoot)
		for _, t := range report.Targets {
			if t.Result != nil && t.Result.Kept {
				fmt.Fprintf(w, "   %s: %s\n", t.Target, t.Result.WorkingDir)
			}
		}
	}

	failed := report.Failed()
	if len(failed) == 0 {
		okColor.Fprintf(w, "%d of %d targets built in %s\n", len(report.Targets), len(report.Targets), report.Duration.Round(time.Millisecond))
		return nil
	}
	failColor.Fprintf(w, "%d of %d targets failed\n", len(failed), len(report.Targets))
	return fmt.Errorf("%d of %d targets failed", len(failed), len(report.Targets))
}

// printViolations lists descriptor violations and returns an error when
// there are any.
func printViolations(w io.Writer, violations []descriptor.Violation) error {
	if len(violations) == 0 {
		okColor.Fprintln(w, "✅ descriptor is valid")
		return nil
	}
	for _, v := range violations {
		failColor.Fprint(w, "❌ ")
		fmt.Fprintln(w, v.String())
	}
	failColor.Fprintf(w, "%d violations\n", len(violations))
	return fmt.Errorf("descriptor has %d violations", len(violations))
}
