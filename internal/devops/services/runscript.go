package services

import (
	"context"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"aura/internal/devops"
	"aura/internal/devops/health"
	devlog "aura/internal/devops/log"
	"aura/internal/devops/process"
	errs "aura/internal/errors"
	"aura/internal/fsutil"
)

const runScriptProcess = "run"

// serverPattern matches a backend server started outside the launcher.
const serverPattern = BackendBinary + " serve"

var killByPattern = func(ctx context.Context, pattern string) error {
	// pkill exits 1 when nothing matched.
	return exec.CommandContext(ctx, "pkill", "-f", pattern).Run()
}

// RunScriptConfig configures the node/local one-click start.
type RunScriptConfig struct {
	Script    string // path to the backend's run script
	Mode      string // node or local
	Dev       bool
	Flags     map[string]bool // exported as NAME=1 when set
	HealthURL string
	Backend   BackendConfig
}

// RunScript starts the database and backend through the backend's run
// script. Without a script it falls back to the backend's serve command.
type RunScript struct {
	pm      *process.Manager
	health  *health.Checker
	section *devlog.SectionWriter
	cfg     RunScriptConfig
	state   atomic.Value // devops.ServiceState
}

// NewRunScript creates the run-script service.
func NewRunScript(pm *process.Manager, hc *health.Checker, sw *devlog.SectionWriter, cfg RunScriptConfig) *RunScript {
	if sw == nil {
		sw = devlog.NewSectionWriter(nil, false)
	}
	if hc == nil {
		hc = health.NewChecker()
	}
	s := &RunScript{pm: pm, health: hc, section: sw, cfg: cfg}
	s.state.Store(devops.StateStopped)
	return s
}

func (s *RunScript) Name() string { return "run " + s.cfg.Mode }

func (s *RunScript) State() devops.ServiceState {
	return s.state.Load().(devops.ServiceState)
}

func (s *RunScript) Health(ctx context.Context) health.Result {
	if s.cfg.HealthURL == "" {
		return health.Result{Message: "no health endpoint"}
	}
	return s.health.Check(ctx, health.HTTP(s.cfg.HealthURL))
}

// Env returns the environment handed to the run script.
func (s *RunScript) Env() []string {
	flags := make(map[string]bool, len(s.cfg.Flags)+1)
	for k, v := range s.cfg.Flags {
		flags[k] = v
	}
	if s.cfg.Dev {
		flags["DEV"] = true
	}
	return devops.MergeEnv(s.cfg.Backend.Env, devops.FlagLayer(flags))
}

// FallbackArgs returns the backend arguments used when no run script exists.
func (s *RunScript) FallbackArgs() []string {
	if s.cfg.Dev {
		return []string{"serve", "--reload"}
	}
	return []string{"serve"}
}

// Start runs the script in the foreground until it exits.
func (s *RunScript) Start(ctx context.Context) error {
	s.state.Store(devops.StateStarting)

	if !fsutil.Exists(s.cfg.Script) {
		args := s.FallbackArgs()
		s.section.Warn("No run script at %s; running %s %s", s.cfg.Script, BackendBinary, strings.Join(args, " "))
		backendCfg := s.cfg.Backend
		backendCfg.Env = s.Env()
		err := NewBackend(s.pm, s.section, backendCfg, args...).Start(ctx)
		s.finish(err)
		return err
	}

	s.section.Info("Running %s %s", s.cfg.Script, s.cfg.Mode)
	cmd := exec.Command(s.cfg.Script, s.cfg.Mode)
	if fsutil.DirExists(s.cfg.Backend.Root) {
		cmd.Dir = s.cfg.Backend.Root
	}
	cmd.Env = s.Env()
	cmd.Stdout = s.cfg.Backend.Stdout
	cmd.Stderr = s.cfg.Backend.Stderr

	s.state.Store(devops.StateRunning)
	code, err := s.pm.Run(ctx, runScriptProcess, cmd, process.RunOptions{Track: true})
	if err == nil && code != 0 {
		err = &errs.ExitError{Code: code, Command: s.cfg.Script + " " + s.cfg.Mode}
	}
	s.finish(err)
	return err
}

func (s *RunScript) finish(err error) {
	if err != nil {
		s.state.Store(devops.StateFailed)
		return
	}
	s.state.Store(devops.StateExited)
}

// Stop terminates the tracked script and backend server. When neither is
// tracked it falls back to matching the server's command line.
func (s *RunScript) Stop(ctx context.Context) error {
	s.state.Store(devops.StateStopping)
	stopped := false
	for _, name := range []string{runScriptProcess, backendProcess} {
		found, err := s.pm.Stop(ctx, name)
		if err != nil {
			s.state.Store(devops.StateFailed)
			return err
		}
		if found {
			s.section.Success("Stopped %s", name)
			stopped = true
		}
	}
	if !stopped {
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := killByPattern(stopCtx, serverPattern); err == nil {
			s.section.Success("Stopped %s", serverPattern)
		} else {
			s.section.Info("No running backend found")
		}
	}
	s.state.Store(devops.StateStopped)
	return nil
}
