//go:build !unix

package process

import (
	"os"
	"os/exec"
)

// setSysProcAttr is a no-op; process groups are a Unix concept.
func setSysProcAttr(*exec.Cmd) {}

// terminate kills outright: there is no portable graceful signal outside
// Unix, os.Interrupt is unsupported on Windows.
func terminate(p *os.Process) error {
	return p.Kill()
}

func kill(p *os.Process) error {
	return p.Kill()
}

func killGroup(int) {}
