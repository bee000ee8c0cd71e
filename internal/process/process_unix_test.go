//go:build unix

package process

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineWriter collects output lines from a helper process.
type lineWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.buf.Write(p)
}

func (w *lineWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.buf.String()
}

// processGone reports whether pid no longer runs. Zombies awaiting their
// reaper count as gone.
func processGone(pid int) bool {
	if err := syscall.Kill(pid, 0); err != nil {
		return true
	}

	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}

	i := bytes.LastIndexByte(stat, ')')

	return i >= 0 && i+2 < len(stat) && stat[i+2] == 'Z'
}

func TestStop_KillsLeftoverGroupMembers(t *testing.T) {
	out := &lineWriter{}
	p, err := Start(helperCommand("spawn-grandchild", out))
	require.NoError(t, err)

	var grandchild int

	require.Eventually(t, func() bool {
		s := out.String()
		if !strings.Contains(s, "ready") {
			return false
		}

		for _, line := range strings.Split(s, "\n") {
			if _, err := fmt.Sscanf(line, "grandchild %d", &grandchild); err == nil {
				return true
			}
		}

		return false
	}, 5*time.Second, 10*time.Millisecond, "grandchild never became ready")

	t.Cleanup(func() { _ = syscall.Kill(grandchild, syscall.SIGKILL) })

	forced, err := p.Stop(5 * time.Second)
	require.NoError(t, err)
	assert.False(t, forced, "the leader exits on SIGTERM")

	assert.Eventually(t, func() bool {
		return processGone(grandchild)
	}, 5*time.Second, 10*time.Millisecond, "grandchild ignoring SIGTERM must not survive Stop")
}
