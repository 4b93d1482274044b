//go:build windows

package process

import "os/exec"

// startGroup keeps the default cancellation, which kills the child only.
func startGroup(cmd *exec.Cmd) {}
