// Package errors defines the error taxonomy shared by the build pipeline.
//
// Every failure is classified by wrapping one of the sentinels below with
// fmt.Errorf("%w: ..."), so callers use errors.Is to decide what happened.
// Process and build failures additionally carry typed context.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Configuration errors 📝
	ErrConfig = errors.New("❌ configuration error")

	// Lookup errors 🔍
	ErrNotFound    = errors.New("❌ not found")
	ErrEmptyTarget = errors.New("❌ target contains no files")

	// Sandbox errors 🔒
	ErrPathEscape = errors.New("❌ path escapes its root")

	// Filesystem errors 📂
	ErrPermission = errors.New("❌ permission change failed")
	ErrIO         = errors.New("❌ filesystem operation failed")

	// Execution errors 🚀
	ErrProcess     = errors.New("❌ process failed")
	ErrInterrupted = errors.New("❌ process wait interrupted")
)

// ProcessError describes a child process that did not exit cleanly.
type ProcessError struct {
	Args     []string
	ExitCode int   // -1 when the process never produced an exit status
	Err      error // ErrProcess or ErrInterrupted, possibly wrapping a cause
}

func (e *ProcessError) Error() string {
	cmd := strings.Join(e.Args, " ")
	if e.ExitCode >= 0 {
		return fmt.Sprintf("command %q returned exit value %d: %v", cmd, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("command %q: %v", cmd, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// BuildError scopes a failure to one target and, when known, the stage and
// command that raised it.
type BuildError struct {
	Target    string
	Stage     string
	CommandID string
	Err       error
}

func (e *BuildError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "target %s", e.Target)
	if e.Stage != "" {
		fmt.Fprintf(&b, ", stage %s", e.Stage)
	}
	if e.CommandID != "" {
		fmt.Fprintf(&b, ", command %s", e.CommandID)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Configf returns an ErrConfig wrapping a formatted detail message.
func Configf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// IOf wraps cause as an ErrIO with a formatted detail message.
func IOf(cause error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, fmt.Sprintf(format, args...), cause)
}
