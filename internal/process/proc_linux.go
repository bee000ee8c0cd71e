//go:build linux

package process

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr puts the child into a new process group led by itself and
// asks the kernel to send it SIGTERM if xwatch dies without stopping it.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
