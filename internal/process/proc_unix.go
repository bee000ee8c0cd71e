//go:build unix

package process

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func terminate(p *os.Process) error {
	return signalGroup(p, unix.SIGTERM)
}

func kill(p *os.Process) error {
	return signalGroup(p, unix.SIGKILL)
}

// signalGroup delivers sig to every member of the process group led by p.
func signalGroup(p *os.Process, sig unix.Signal) error {
	err := unix.Kill(-p.Pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return os.ErrProcessDone
	}

	return err
}

// killGroup sends SIGKILL to whatever is left of the process group led by
// pid. The leader is already reaped, so a missing group is the normal case.
func killGroup(pid int) {
	_ = unix.Kill(-pid, unix.SIGKILL)
}
