package xwatch_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/xwatch/pkg/xwatch"
)

const helperEnv = "XWATCH_LIB_HELPER"

func TestMain(m *testing.M) {
	switch os.Getenv(helperEnv) {
	case "sleep":
		time.Sleep(time.Minute)
		os.Exit(0)
	case "chatter":
		for i := range 100 {
			fmt.Fprintf(os.Stderr, "chatter %d\n", i)
		}

		os.Exit(0)
	}

	os.Exit(m.Run())
}

func sleepCommand() *exec.Cmd {
	cmd := exec.Command(os.Args[0])
	cmd.Env = append(os.Environ(), helperEnv+"=sleep")

	return cmd
}

// events collects lifecycle events from the loop goroutine.
type events struct {
	mu   sync.Mutex
	list []xwatch.Event
}

func (e *events) add(ev xwatch.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.list = append(e.list, ev)
}

func (e *events) count(kind xwatch.EventKind) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0

	for _, ev := range e.list {
		if ev.Kind == kind {
			n++
		}
	}

	return n
}

func TestRun_NilCommand(t *testing.T) {
	err := xwatch.New().Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be nil")
}

func TestRun_CommandNotFound(t *testing.T) {
	err := xwatch.New().
		WatchPath(t.TempDir()).
		Run(context.Background(), exec.Command("xwatch-no-such-binary-on-path"))
	require.Error(t, err)
	assert.ErrorIs(t, err, xwatch.ErrSpawn)

	var spawnErr *xwatch.SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.True(t, spawnErr.NotFound())
}

func TestRun_InvalidDebounce(t *testing.T) {
	err := xwatch.New().
		Debounce(0).
		Run(context.Background(), sleepCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "debounce must be positive")
}

func TestRun_InvalidIgnoreRule(t *testing.T) {
	err := xwatch.New().
		WatchPath(t.TempDir()).
		IgnoreRule("[").
		Run(context.Background(), sleepCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ignore rule")
}

func TestRun_MissingWatchPath(t *testing.T) {
	err := xwatch.New().
		WatchPath(filepath.Join(t.TempDir(), "missing")).
		Run(context.Background(), sleepCommand())
	require.Error(t, err)
	assert.ErrorIs(t, err, xwatch.ErrWatchInit)
}

func TestRun_RestartsOnChange(t *testing.T) {
	root := t.TempDir()
	gen := filepath.Join(root, "gen")
	require.NoError(t, os.Mkdir(gen, 0o755))

	rec := &events{}
	var status bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	w := xwatch.New().
		WatchPath(root).
		ExcludePath(gen).
		Debounce(20 * time.Millisecond).
		GracePeriod(time.Second).
		NoClear().
		Output(&syncWriter{w: &status}).
		OnEvent(rec.add)

	go func() { done <- w.Run(ctx, sleepCommand()) }()

	require.Eventually(t, func() bool {
		return rec.count(xwatch.EventSpawned) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// Give the watcher a moment to register the directories.
	time.Sleep(100 * time.Millisecond)

	// Excluded changes are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(gen, "out.go"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, rec.count(xwatch.EventRestarting))

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644))

	require.Eventually(t, func() bool {
		return rec.count(xwatch.EventSpawned) == 2
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, rec.count(xwatch.EventStopped))

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, 2, rec.count(xwatch.EventStopped), "shutdown must stop the command")
}

func TestRun_OutputSharedWithCommandStderr(t *testing.T) {
	// A plain buffer, written by the loop goroutine and by the copier of the
	// command's stderr.
	var out bytes.Buffer

	cmd := exec.Command(os.Args[0])
	cmd.Env = append(os.Environ(), helperEnv+"=chatter")
	cmd.Stderr = &out

	rec := &events{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	w := xwatch.New().
		WatchPath(t.TempDir()).
		NoClear().
		Output(&out).
		OnEvent(rec.add)

	go func() { done <- w.Run(ctx, cmd) }()

	require.Eventually(t, func() bool {
		return rec.count(xwatch.EventExited) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Contains(t, out.String(), "chatter 99")
	assert.Contains(t, out.String(), "command exited (code 0)")
}

func TestErrorsAreDistinct(t *testing.T) {
	all := []error{xwatch.ErrSpawn, xwatch.ErrWatchInit, xwatch.ErrEventStream, xwatch.ErrStop}

	for i, a := range all {
		for j, b := range all {
			assert.Equal(t, i == j, errors.Is(a, b))
		}
	}
}

// syncWriter serialises writes from the loop goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Write(p)
}
