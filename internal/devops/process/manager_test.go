package process

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReturnsExitCode(t *testing.T) {
	m := NewManager(t.TempDir(), time.Second)

	code, err := m.Run(context.Background(), "ok", exec.Command("sh", "-c", "exit 0"), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	code, err = m.Run(context.Background(), "fail", exec.Command("sh", "-c", "exit 7"), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 7, code)
}

func TestRunMissingBinary(t *testing.T) {
	m := NewManager(t.TempDir(), time.Second)
	code, err := m.Run(context.Background(), "x", exec.Command("/nonexistent/aura-test-binary"), RunOptions{})
	require.Error(t, err)
	assert.Equal(t, 127, code)
}

func TestRunTrackedWritesAndRemovesPIDFile(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, time.Second)

	cmd := exec.Command("sh", "-c",
		`for i in 1 2 3 4 5 6 7 8 9 10; do test -f "$PIDFILE" && exit 0; sleep 0.1; done; exit 1`)
	cmd.Env = append(os.Environ(), "PIDFILE="+m.PIDFile("tracked"))
	code, err := m.Run(context.Background(), "tracked", cmd, RunOptions{Track: true})
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	_, statErr := os.Stat(m.PIDFile("tracked"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunCancelTerminatesChild(t *testing.T) {
	m := NewManager(t.TempDir(), 2*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	code, err := m.Run(ctx, "sleeper", exec.Command("sleep", "30"), RunOptions{Track: true})
	require.NoError(t, err)
	assert.Equal(t, 128+int(syscall.SIGTERM), code)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestStopWithoutPIDFile(t *testing.T) {
	m := NewManager(t.TempDir(), time.Second)
	found, err := m.Stop(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStopStalePIDFile(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, time.Second)
	require.NoError(t, os.WriteFile(m.PIDFile("stale"), []byte("not-a-pid"), 0o644))

	found, err := m.Stop(context.Background(), "stale")
	require.NoError(t, err)
	assert.False(t, found)
	_, statErr := os.Stat(m.PIDFile("stale"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestStopTerminatesTrackedProcess(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 2*time.Second)

	cmd := exec.Command("sleep", "30")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Start())
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	require.NoError(t, os.WriteFile(m.PIDFile("sleeper"), []byte(strconv.Itoa(cmd.Process.Pid)), 0o644))

	running, pid := m.IsRunning("sleeper")
	require.True(t, running)
	assert.Equal(t, cmd.Process.Pid, pid)

	found, err := m.Stop(context.Background(), "sleeper")
	require.NoError(t, err)
	assert.True(t, found)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process still running after Stop")
	}
	running, _ = m.IsRunning("sleeper")
	assert.False(t, running)
}
