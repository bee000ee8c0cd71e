// Package process spawns and supervises the single child command that the
// watch loop restarts. A Process is reaped by exactly one background
// goroutine; every other method only observes the result of that reap.
package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Command describes how to launch the child. It is a value type so the same
// Command can be started again after every restart, which *exec.Cmd does not
// allow.
type Command struct {
	// Name is the program to run. It is resolved through PATH when it
	// contains no path separator.
	Name string

	// Args are the arguments, not including Name.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is the environment. Nil inherits the parent's environment.
	Env []string

	// Stdin is detached when nil.
	Stdin io.Reader

	// Stdout and Stderr default to the parent's stdout and stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// SpawnError reports that the command could not be started, e.g. because
// the binary does not exist or is not executable.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// NotFound reports whether the binary could not be located.
func (e *SpawnError) NotFound() bool {
	return errors.Is(e.Err, exec.ErrNotFound) || errors.Is(e.Err, os.ErrNotExist)
}

// Process is a running (or exited) child.
type Process struct {
	cmd       *exec.Cmd
	done      chan struct{}
	waitErr   error
	startedAt time.Time
}

// Start launches c and returns its handle. The child gets its own process
// group on platforms that support it so that Stop also reaches the
// grandchildren it forks.
func Start(c Command) (*Process, error) {
	if c.Name == "" {
		return nil, &SpawnError{Err: errors.New("empty command")}
	}

	cmd := exec.Command(c.Name, c.Args...) //nolint:gosec
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdin = c.Stdin

	cmd.Stdout = c.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}

	cmd.Stderr = c.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	cmd.WaitDelay = pipeDrainTimeout

	setSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Command: c.String(), Err: err}
	}

	p := &Process{
		cmd:       cmd,
		done:      make(chan struct{}),
		startedAt: time.Now(),
	}

	go p.reap()

	return p, nil
}

func (p *Process) reap() {
	p.waitErr = p.cmd.Wait()
	close(p.done)
}

// PID returns the operating-system process id.
func (p *Process) PID() int { return p.cmd.Process.Pid }

// StartedAt returns when the process was launched.
func (p *Process) StartedAt() time.Time { return p.startedAt }

// Done is closed once the process has exited and been reaped.
func (p *Process) Done() <-chan struct{} { return p.done }

// Exited reports whether the process has been reaped.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the exit status, or -1 while the process is running or
// when it was ended by a signal.
func (p *Process) ExitCode() int {
	if !p.Exited() {
		return -1
	}

	return p.cmd.ProcessState.ExitCode()
}

// Err returns the error reported by wait, nil on a zero exit status or
// while the process is still running.
func (p *Process) Err() error {
	if !p.Exited() {
		return nil
	}

	return p.waitErr
}

// Wait blocks until the process exits or timeout elapses and reports
// whether it exited.
func (p *Process) Wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.done:
		return true
	case <-timer.C:
		return false
	}
}

// Terminate asks the process group to stop.
func (p *Process) Terminate() error {
	if p.Exited() {
		return nil
	}

	return ignoreDone(terminate(p.cmd.Process))
}

// Kill forcibly ends the process group.
func (p *Process) Kill() error {
	if p.Exited() {
		return nil
	}

	return ignoreDone(kill(p.cmd.Process))
}

// Stop terminates the process, escalating to Kill when it is still alive
// after grace. It returns only once the process has been reaped, and
// reports whether the kill was needed. A non-nil error means the process
// could not be confirmed dead.
func (p *Process) Stop(grace time.Duration) (forced bool, err error) {
	if p.Exited() {
		return false, nil
	}

	if err := p.Terminate(); err != nil {
		return false, fmt.Errorf("sending terminate signal to %d: %w", p.PID(), err)
	}

	if p.Wait(grace) {
		// Grandchildren that ignored SIGTERM outlive their leader.
		killGroup(p.PID())
		return false, nil
	}

	if err := p.Kill(); err != nil {
		return true, fmt.Errorf("killing %d: %w", p.PID(), err)
	}

	// SIGKILL cannot be caught; only an uninterruptible sleep delays the
	// reap, so the wait is bounded again rather than blocking forever.
	if !p.Wait(grace + killReapTimeout) {
		return true, fmt.Errorf("process %d still running after kill", p.PID())
	}

	return true, nil
}

const (
	killReapTimeout = 5 * time.Second

	// pipeDrainTimeout bounds how long Wait keeps copying output after the
	// child exits, in case a grandchild still holds the pipe open.
	pipeDrainTimeout = time.Second
)

func ignoreDone(err error) error {
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}

	return err
}
