//go:build unix && !linux

package process

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr puts the child into a new process group led by itself.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
