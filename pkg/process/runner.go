// Package process runs external commands while draining their output.
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
)

// killWaitDelay bounds how long the drains keep reading after ctx is done.
// A process that escaped the group and still holds the pipes is cut off then.
const killWaitDelay = 5 * time.Second

// MaxLineLength is the longest line handed to a LineFunc. Longer lines are
// split into pieces of this size.
const MaxLineLength = 8 * 1024 * 1024

// LineFunc receives one line of child output without its trailing newline.
type LineFunc func(line string)

// Spec describes one child process.
type Spec struct {
	Args   []string
	Dir    string
	Env    []string // complete environment; nil inherits the parent's
	Stdout LineFunc
	Stderr LineFunc
}

// Result is the outcome of a finished process.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Run starts the process, drains stdout and stderr concurrently and waits for
// it. Both drains finish before the exit status is inspected. A non-zero exit
// is returned as *errors.ProcessError wrapping ErrProcess; cancelling ctx
// kills the child and yields ErrInterrupted.
func Run(ctx context.Context, spec Spec) (*Result, error) {
	if len(spec.Args) == 0 {
		return nil, cerrors.Configf("empty command")
	}

	cmd := exec.CommandContext(ctx, spec.Args[0], spec.Args[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.WaitDelay = killWaitDelay
	startGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, cerrors.IOf(err, "stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, cerrors.IOf(err, "stderr pipe")
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &cerrors.ProcessError{
			Args:     spec.Args,
			ExitCode: -1,
			Err:      fmt.Errorf("%w: start: %w", cerrors.ErrProcess, err),
		}
	}

	// Drains must run before Wait so a full pipe cannot block the child.
	errc := make(chan error, 2)
	go func() {
		errc <- ConsumeLines(stdout, spec.Stdout)
	}()
	go func() {
		errc <- ConsumeLines(stderr, spec.Stderr)
	}()

	drained := make(chan struct{})
	go func() {
		select {
		case <-drained:
			return
		case <-ctx.Done():
		}
		select {
		case <-drained:
		case <-time.After(killWaitDelay):
			stdout.Close()
			stderr.Close()
		}
	}()

	drainErrA := <-errc
	drainErrB := <-errc
	close(drained)

	waitErr := cmd.Wait()
	result := &Result{ExitCode: -1, Duration: time.Since(start)}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, &cerrors.ProcessError{
			Args:     spec.Args,
			ExitCode: -1,
			Err:      fmt.Errorf("%w: %w", cerrors.ErrInterrupted, ctxErr),
		}
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return result, &cerrors.ProcessError{
				Args:     spec.Args,
				ExitCode: exitErr.ExitCode(),
				Err:      cerrors.ErrProcess,
			}
		}
		return result, &cerrors.ProcessError{
			Args:     spec.Args,
			ExitCode: -1,
			Err:      fmt.Errorf("%w: %w", cerrors.ErrProcess, waitErr),
		}
	}

	for _, drainErr := range []error{drainErrA, drainErrB} {
		if drainErr != nil {
			return result, cerrors.IOf(drainErr, "reading output of %s", spec.Args[0])
		}
	}

	return result, nil
}

// ConsumeLines reads r line by line until EOF, handing each line to fn.
// A nil fn discards the input. Lines longer than MaxLineLength arrive in
// pieces. After a read error the rest of r is discarded so the writer never
// blocks on a full pipe.
func ConsumeLines(r io.Reader, fn LineFunc) error {
	emit := func(line []byte) {
		if fn != nil {
			fn(string(line))
		}
	}

	br := bufio.NewReaderSize(r, 64*1024)
	var line []byte
	for {
		chunk, more, err := br.ReadLine()
		if err != nil {
			if len(line) > 0 {
				emit(line)
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			_, _ = io.Copy(io.Discard, r)
			return err
		}

		line = append(line, chunk...)
		for len(line) > MaxLineLength {
			emit(line[:MaxLineLength])
			line = line[MaxLineLength:]
		}
		if !more {
			emit(line)
			line = line[:0]
		}
	}
}
