//go:build !windows

package launch

import (
	"os/exec"
	"syscall"
)

// configureCmd puts the child in its own process group so signals aimed at
// the launcher's terminal do not reach it.
func configureCmd(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
