//go:build !windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// startGroup puts the child into its own process group and makes
// cancellation kill the whole group, so background jobs started by a shell
// release the output pipes too.
func startGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}
