package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// RunOptions controls how Run launches a command.
type RunOptions struct {
	// Track puts the child in its own process group and records its PID so
	// Stop can terminate the whole group from another invocation.
	Track bool
}

// Manager runs delegated commands in the foreground and tracks long-running
// ones with PID files.
type Manager struct {
	pidDir      string
	stopTimeout time.Duration
	poll        time.Duration
}

// NewManager creates a process manager storing PID files in pidDir.
func NewManager(pidDir string, stopTimeout time.Duration) *Manager {
	if stopTimeout <= 0 {
		stopTimeout = 5 * time.Second
	}
	return &Manager{
		pidDir:      pidDir,
		stopTimeout: stopTimeout,
		poll:        100 * time.Millisecond,
	}
}

// PIDFile returns the PID file path for name.
func (m *Manager) PIDFile(name string) string {
	return filepath.Join(m.pidDir, name+".pid")
}

// Run starts cmd, waits for it and returns its exit code. Cancelling ctx
// sends SIGTERM to a tracked child's process group, escalating to SIGKILL
// after the stop timeout. Termination by signal maps to 128+signal.
func (m *Manager) Run(ctx context.Context, name string, cmd *exec.Cmd, opts RunOptions) (int, error) {
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if opts.Track {
		if err := os.MkdirAll(m.pidDir, 0o755); err != nil {
			return 1, fmt.Errorf("create pid dir: %w", err)
		}
		if cmd.SysProcAttr == nil {
			cmd.SysProcAttr = &syscall.SysProcAttr{}
		}
		cmd.SysProcAttr.Setpgid = true
	}

	if err := cmd.Start(); err != nil {
		return 127, fmt.Errorf("start %s: %w", name, err)
	}

	pidFile := m.PIDFile(name)
	if opts.Track {
		_ = atomicWriteFile(pidFile, []byte(strconv.Itoa(cmd.Process.Pid)))
		defer os.Remove(pidFile)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	var err error
	select {
	case err = <-waitErr:
	case <-ctx.Done():
		if opts.Track {
			m.terminate(cmd.Process.Pid, cmd.Process.Pid)
		} else {
			_ = cmd.Process.Signal(syscall.SIGTERM)
		}
		err = <-waitErr
	}
	return exitCode(err)
}

func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 1, err
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal()), nil
	}
	return exitErr.ExitCode(), nil
}

// Stop terminates the tracked process recorded for name. It reports whether
// a live process was found.
func (m *Manager) Stop(_ context.Context, name string) (bool, error) {
	pidFile := m.PIDFile(name)
	pid, err := readPIDFile(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		os.Remove(pidFile)
		return false, nil
	}
	if !isProcessAlive(pid) {
		os.Remove(pidFile)
		return false, nil
	}

	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		pgid = pid
	}
	m.terminate(pgid, pid)
	os.Remove(pidFile)
	return true, nil
}

// IsRunning checks if the tracked process for name is alive.
func (m *Manager) IsRunning(name string) (bool, int) {
	pidFile := m.PIDFile(name)
	pid, err := readPIDFile(pidFile)
	if err != nil {
		return false, 0
	}
	if isProcessAlive(pid) {
		return true, pid
	}
	os.Remove(pidFile)
	return false, 0
}

func (m *Manager) terminate(pgid, pid int) {
	target := -pgid
	if pgid == 0 {
		target = pid
	}

	_ = syscall.Kill(target, syscall.SIGTERM)

	deadline := time.Now().Add(m.stopTimeout)
	for time.Now().Before(deadline) {
		if !isProcessAlive(pid) {
			return
		}
		time.Sleep(m.poll)
	}

	_ = syscall.Kill(target, syscall.SIGKILL)
}

func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func atomicWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
