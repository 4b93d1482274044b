package builder

import (
	"context"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/sfuhrm/capsula/pkg/layout"
	"github.com/sfuhrm/capsula/pkg/process"
	"github.com/sfuhrm/capsula/pkg/utils/shellparse"
)

// Variables added to the environment of every child process.
const (
	EnvTarget = "CAPSULA_TARGET"
	EnvSource = "CAPSULA_SOURCE"
	EnvLayout = "CAPSULA_LAYOUT"
)

// runCommand executes an external program in the working directory.
// Output is logged line by line and echoed with a target prefix in verbose
// mode.
func (b *Builder) runCommand(ctx context.Context, logger hclog.Logger, cmd *layout.RunCommand) error {
	args, err := cmd.Args()
	if err != nil {
		return err
	}

	env := append(os.Environ(),
		"PWD="+b.workDir,
		EnvTarget+"="+b.workDir,
		EnvSource+"="+b.layoutDir,
		EnvLayout+"="+b.layout.ID,
	)

	logger.Info("🚀 Running", "cmd", shellparse.Join(args))
	result, err := process.Run(ctx, process.Spec{
		Args: args,
		Dir:  b.workDir,
		Env:  env,
		Stdout: func(line string) {
			logger.Info(line, "stream", "stdout")
			if b.opts.Verbose {
				_ = b.stdout.WriteLine(line)
			}
		},
		Stderr: func(line string) {
			logger.Warn(line, "stream", "stderr")
			if b.opts.Verbose {
				_ = b.stderr.WriteLine(line)
			}
		},
	})
	if err != nil {
		return err
	}

	logger.Debug("✅ Command finished", "cmd", args[0], "exit_code", result.ExitCode, "duration", result.Duration)
	return nil
}
