package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helper process
// ---------------------------------------------------------------------------

const helperEnv = "XWATCH_PROCESS_HELPER"

// TestMain turns the test binary into a controllable child process when the
// helper environment variable is set.
func TestMain(m *testing.M) {
	if mode := os.Getenv(helperEnv); mode != "" {
		runHelper(mode)
		return
	}

	os.Exit(m.Run())
}

func runHelper(mode string) {
	switch mode {
	case "sleep":
		fmt.Println("ready")
		time.Sleep(time.Minute)
	case "ignore-term":
		signal.Ignore(syscall.SIGTERM)
		fmt.Println("ready")
		time.Sleep(time.Minute)
	case "exit-3":
		os.Exit(3)
	case "spawn-grandchild":
		// The grandchild stays in this process group and ignores SIGTERM.
		c := exec.Command(os.Args[0])
		c.Env = append(os.Environ(), helperEnv+"=ignore-term")
		c.Stdout = os.Stdout

		if err := c.Start(); err != nil {
			os.Exit(2)
		}

		fmt.Printf("grandchild %d\n", c.Process.Pid)
		time.Sleep(time.Minute)
	}

	os.Exit(0)
}

func helperCommand(mode string, stdout io.Writer) Command {
	return Command{
		Name:   os.Args[0],
		Env:    append(os.Environ(), helperEnv+"="+mode),
		Stdout: stdout,
		Stderr: io.Discard,
	}
}

// readyWriter closes ready on the first write, so tests know the helper has
// installed its signal handlers.
type readyWriter struct {
	once  sync.Once
	ready chan struct{}
}

func newReadyWriter() *readyWriter {
	return &readyWriter{ready: make(chan struct{})}
}

func (w *readyWriter) Write(p []byte) (int, error) {
	w.once.Do(func() { close(w.ready) })
	return len(p), nil
}

func (w *readyWriter) wait(t *testing.T) {
	t.Helper()

	select {
	case <-w.ready:
	case <-time.After(5 * time.Second):
		t.Fatal("helper process never became ready")
	}
}

// ---------------------------------------------------------------------------
// Start
// ---------------------------------------------------------------------------

func TestStart_EmptyCommand(t *testing.T) {
	_, err := Start(Command{})
	require.Error(t, err)

	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.Contains(t, err.Error(), "empty command")
}

func TestStart_MissingBinary(t *testing.T) {
	_, err := Start(Command{Name: "xwatch-definitely-not-a-binary-12345"})
	require.Error(t, err)

	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.True(t, spawnErr.NotFound())
	assert.Contains(t, err.Error(), "xwatch-definitely-not-a-binary-12345")
}

func TestStart_VoluntaryExit(t *testing.T) {
	p, err := Start(helperCommand("exit-3", io.Discard))
	require.NoError(t, err)

	require.True(t, p.Wait(5*time.Second))
	assert.True(t, p.Exited())
	assert.Equal(t, 3, p.ExitCode())
	assert.Error(t, p.Err())
}

func TestProcess_RunningState(t *testing.T) {
	w := newReadyWriter()
	p, err := Start(helperCommand("sleep", w))
	require.NoError(t, err)

	t.Cleanup(func() { _, _ = p.Stop(time.Second) })

	w.wait(t)

	assert.False(t, p.Exited())
	assert.Equal(t, -1, p.ExitCode())
	assert.NoError(t, p.Err())
	assert.Positive(t, p.PID())
	assert.False(t, p.StartedAt().IsZero())
	assert.False(t, p.Wait(20*time.Millisecond))
}

// ---------------------------------------------------------------------------
// Stop
// ---------------------------------------------------------------------------

func TestStop_Graceful(t *testing.T) {
	w := newReadyWriter()
	p, err := Start(helperCommand("sleep", w))
	require.NoError(t, err)
	w.wait(t)

	forced, err := p.Stop(5 * time.Second)
	require.NoError(t, err)
	assert.False(t, forced)
	assert.True(t, p.Exited())
}

func TestStop_EscalatesToKill(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no graceful signal on windows")
	}

	w := newReadyWriter()
	p, err := Start(helperCommand("ignore-term", w))
	require.NoError(t, err)
	w.wait(t)

	start := time.Now()
	forced, err := p.Stop(100 * time.Millisecond)
	require.NoError(t, err)
	assert.True(t, forced)
	assert.True(t, p.Exited())
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestStop_AlreadyExited(t *testing.T) {
	p, err := Start(helperCommand("exit-3", io.Discard))
	require.NoError(t, err)
	require.True(t, p.Wait(5*time.Second))

	forced, err := p.Stop(time.Second)
	require.NoError(t, err)
	assert.False(t, forced)

	assert.NoError(t, p.Terminate())
	assert.NoError(t, p.Kill())
}

// ---------------------------------------------------------------------------
// Misc
// ---------------------------------------------------------------------------

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "go build ./...", Command{Name: "go", Args: []string{"build", "./..."}}.String())
	assert.Equal(t, "make", Command{Name: "make"}.String())
}

func TestSpawnError_Unwrap(t *testing.T) {
	err := &SpawnError{Command: "x", Err: os.ErrPermission}
	assert.True(t, errors.Is(err, os.ErrPermission))
	assert.False(t, err.NotFound())
}
