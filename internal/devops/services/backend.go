package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"

	"aura/internal/devops"
	"aura/internal/devops/health"
	devlog "aura/internal/devops/log"
	"aura/internal/devops/process"
	errs "aura/internal/errors"
	"aura/internal/fsutil"
)

// BackendBinary is the executable name of the backend CLI.
const BackendBinary = "agent-backend"

// backendProcess names the PID file of a tracked backend server.
const backendProcess = "backend"

var lookPath = exec.LookPath

// BackendConfig locates the backend CLI and the environment it runs with.
type BackendConfig struct {
	Root   string // backend checkout, used as working directory when present
	Bin    string // explicit binary name or path, optional
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// ResolveBackendBinary finds the backend CLI. An explicit Bin wins, then the
// checkout's virtualenv, then PATH.
func ResolveBackendBinary(cfg BackendConfig) (string, error) {
	var candidates []string
	if bin := strings.TrimSpace(cfg.Bin); bin != "" {
		candidates = append(candidates, bin)
	}
	if cfg.Root != "" {
		candidates = append(candidates, filepath.Join(cfg.Root, ".venv", "bin", BackendBinary))
	}
	candidates = append(candidates, BackendBinary)

	for _, candidate := range candidates {
		if strings.ContainsRune(candidate, filepath.Separator) {
			if isExecutable(candidate) {
				return candidate, nil
			}
			continue
		}
		if path, err := lookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", &errs.MissingBinaryError{
		Binary: BackendBinary,
		Hint:   "Install Agent-Backend (pip install -e <Agent-Backend>) or set AURA_BACKEND_BIN.",
	}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode()&0o111 != 0
}

// Backend runs the backend CLI in the foreground.
type Backend struct {
	pm      *process.Manager
	section *devlog.SectionWriter
	cfg     BackendConfig
	args    []string
	state   atomic.Value // devops.ServiceState
}

// NewBackend creates a backend service that runs the CLI with args on Start.
func NewBackend(pm *process.Manager, sw *devlog.SectionWriter, cfg BackendConfig, args ...string) *Backend {
	if sw == nil {
		sw = devlog.NewSectionWriter(nil, false)
	}
	b := &Backend{pm: pm, section: sw, cfg: cfg, args: args}
	b.state.Store(devops.StateStopped)
	return b
}

func (b *Backend) Name() string { return "backend" }

func (b *Backend) State() devops.ServiceState {
	return b.state.Load().(devops.ServiceState)
}

// Health reports whether a tracked backend server is alive.
func (b *Backend) Health(_ context.Context) health.Result {
	if running, pid := b.pm.IsRunning(backendProcess); running {
		return health.Result{Healthy: true, Message: fmt.Sprintf("pid %d", pid)}
	}
	return health.Result{Message: "not running"}
}

// Start runs the configured arguments and blocks until the CLI exits.
// A non-zero exit is returned as an ExitError carrying the status.
func (b *Backend) Start(ctx context.Context) error {
	b.state.Store(devops.StateRunning)
	code, err := b.Run(ctx, b.args)
	if err != nil {
		b.state.Store(devops.StateFailed)
		return err
	}
	if code != 0 {
		b.state.Store(devops.StateFailed)
		return &errs.ExitError{Code: code, Command: BackendBinary + " " + strings.Join(b.args, " ")}
	}
	b.state.Store(devops.StateExited)
	return nil
}

// Stop terminates a tracked backend server started by this launcher.
func (b *Backend) Stop(ctx context.Context) error {
	b.state.Store(devops.StateStopping)
	if _, err := b.pm.Stop(ctx, backendProcess); err != nil {
		b.state.Store(devops.StateFailed)
		return err
	}
	b.state.Store(devops.StateStopped)
	return nil
}

// Run executes the backend CLI with args and returns its exit status.
// The serve subcommand is tracked so a later down can stop it.
func (b *Backend) Run(ctx context.Context, args []string) (int, error) {
	bin, err := ResolveBackendBinary(b.cfg)
	if err != nil {
		return 1, err
	}

	cmd := exec.Command(bin, args...)
	if fsutil.DirExists(b.cfg.Root) {
		cmd.Dir = b.cfg.Root
	}
	cmd.Env = b.cfg.Env
	cmd.Stdout = b.cfg.Stdout
	cmd.Stderr = b.cfg.Stderr

	track := len(args) > 0 && args[0] == "serve"
	return b.pm.Run(ctx, backendProcess, cmd, process.RunOptions{Track: track})
}
