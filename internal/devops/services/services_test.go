package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aura/internal/devops"
	"aura/internal/devops/process"
	errs "aura/internal/errors"
)

// writeScript creates an executable shell script that records its
// arguments and DEV flag to out and exits with code.
func writeScript(t *testing.T, path, out string, code int) {
	t.Helper()
	body := "#!/bin/sh\n" +
		"echo \"$*\" > '" + out + "'\n" +
		"echo \"DEV=$DEV SKIP_DB_WAIT=$SKIP_DB_WAIT\" >> '" + out + "'\n" +
		"exit " + strconv.Itoa(code) + "\n"
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func noPath(t *testing.T) {
	t.Helper()
	orig := lookPath
	lookPath = func(string) (string, error) { return "", os.ErrNotExist }
	t.Cleanup(func() { lookPath = orig })
}

func TestResolveBackendBinary(t *testing.T) {
	noPath(t)
	root := t.TempDir()
	out := filepath.Join(root, "out")

	_, err := ResolveBackendBinary(BackendConfig{Root: root})
	require.Error(t, err)
	assert.True(t, errs.IsMissingBinary(err))
	assert.Contains(t, err.Error(), "AURA_BACKEND_BIN")

	venv := filepath.Join(root, ".venv", "bin", BackendBinary)
	writeScript(t, venv, out, 0)
	bin, err := ResolveBackendBinary(BackendConfig{Root: root})
	require.NoError(t, err)
	assert.Equal(t, venv, bin)

	explicit := filepath.Join(root, "custom")
	writeScript(t, explicit, out, 0)
	bin, err = ResolveBackendBinary(BackendConfig{Root: root, Bin: explicit})
	require.NoError(t, err)
	assert.Equal(t, explicit, bin)
}

func TestResolveBackendBinaryFromPath(t *testing.T) {
	orig := lookPath
	lookPath = func(name string) (string, error) { return "/usr/local/bin/" + name, nil }
	t.Cleanup(func() { lookPath = orig })

	bin, err := ResolveBackendBinary(BackendConfig{Root: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/"+BackendBinary, bin)
}

func TestBackendPassesArgsAndExitCode(t *testing.T) {
	noPath(t)
	root := t.TempDir()
	out := filepath.Join(root, "out")
	bin := filepath.Join(root, "bin", "backend")
	writeScript(t, bin, out, 3)

	pm := process.NewManager(filepath.Join(root, "pids"), time.Second)
	b := NewBackend(pm, nil, BackendConfig{Root: root, Bin: bin, Stdout: io.Discard, Stderr: io.Discard}, "init-db", "--force")

	err := b.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, errs.ExitCode(err))
	assert.Equal(t, devops.StateFailed, b.State())
	assert.Equal(t, "init-db --force", readLines(t, out)[0])
}

func TestRunScriptRunsScriptWithFlags(t *testing.T) {
	noPath(t)
	root := t.TempDir()
	out := filepath.Join(root, "out")
	script := filepath.Join(root, "run")
	writeScript(t, script, out, 0)

	pm := process.NewManager(filepath.Join(root, "pids"), time.Second)
	svc := NewRunScript(pm, nil, nil, RunScriptConfig{
		Script: script,
		Mode:   "local",
		Dev:    true,
		Flags:  map[string]bool{"SKIP_DB_WAIT": true, "NO_DB_PASSWORD": false},
		Backend: BackendConfig{
			Root:   root,
			Env:    []string{"PATH=" + os.Getenv("PATH")},
			Stdout: io.Discard,
			Stderr: io.Discard,
		},
	})

	require.NoError(t, svc.Start(context.Background()))
	assert.Equal(t, devops.StateExited, svc.State())
	lines := readLines(t, out)
	assert.Equal(t, "local", lines[0])
	assert.Equal(t, "DEV=1 SKIP_DB_WAIT=1", lines[1])

	env := svc.Env()
	_, ok := devops.EnvValue(env, "NO_DB_PASSWORD")
	assert.False(t, ok)
}

func TestRunScriptFallsBackToServe(t *testing.T) {
	noPath(t)
	root := t.TempDir()
	out := filepath.Join(root, "out")
	bin := filepath.Join(root, "bin", "backend")
	writeScript(t, bin, out, 0)

	pm := process.NewManager(filepath.Join(root, "pids"), time.Second)
	svc := NewRunScript(pm, nil, nil, RunScriptConfig{
		Script:  filepath.Join(root, "run"),
		Mode:    "node",
		Dev:     true,
		Backend: BackendConfig{Root: root, Bin: bin, Stdout: io.Discard, Stderr: io.Discard},
	})

	require.NoError(t, svc.Start(context.Background()))
	assert.Equal(t, "serve --reload", readLines(t, out)[0])
}

func TestRunScriptFailureCarriesExitCode(t *testing.T) {
	root := t.TempDir()
	script := filepath.Join(root, "run")
	writeScript(t, script, filepath.Join(root, "out"), 4)

	pm := process.NewManager(filepath.Join(root, "pids"), time.Second)
	svc := NewRunScript(pm, nil, nil, RunScriptConfig{
		Script:  script,
		Mode:    "node",
		Backend: BackendConfig{Root: root, Stdout: io.Discard, Stderr: io.Discard},
	})

	err := svc.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, 4, errs.ExitCode(err))
}

func TestRunScriptStopFallsBackToPattern(t *testing.T) {
	var pattern string
	orig := killByPattern
	killByPattern = func(_ context.Context, p string) error {
		pattern = p
		return nil
	}
	t.Cleanup(func() { killByPattern = orig })

	pm := process.NewManager(t.TempDir(), time.Second)
	svc := NewRunScript(pm, nil, nil, RunScriptConfig{Mode: "node"})
	require.NoError(t, svc.Stop(context.Background()))
	assert.Equal(t, "agent-backend serve", pattern)
	assert.Equal(t, devops.StateStopped, svc.State())
}

func TestComposeStartAndStop(t *testing.T) {
	noPath(t)
	root := t.TempDir()
	out := filepath.Join(root, "out")
	bin := filepath.Join(root, "bin", "backend")
	writeScript(t, bin, out, 0)

	pm := process.NewManager(filepath.Join(root, "pids"), time.Second)
	svc := NewCompose(pm, nil, nil, ComposeConfig{
		Backend: BackendConfig{Root: root, Bin: bin, Stdout: io.Discard, Stderr: io.Discard},
	})

	require.NoError(t, svc.Start(context.Background()))
	assert.Equal(t, "start", readLines(t, out)[0])
	assert.Equal(t, devops.StateRunning, svc.State())

	require.NoError(t, svc.Stop(context.Background()))
	assert.Equal(t, "stop", readLines(t, out)[0])
	assert.Equal(t, devops.StateStopped, svc.State())
}
