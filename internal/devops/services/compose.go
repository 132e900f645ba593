package services

import (
	"context"
	"sync/atomic"
	"time"

	"aura/internal/devops"
	"aura/internal/devops/health"
	devlog "aura/internal/devops/log"
	"aura/internal/devops/process"
)

// ComposeConfig configures the docker run mode.
type ComposeConfig struct {
	HealthURL   string
	WaitHealthy time.Duration
	Backend     BackendConfig
}

// Compose starts the containerized stack through the backend's start and
// stop commands.
type Compose struct {
	pm      *process.Manager
	health  *health.Checker
	section *devlog.SectionWriter
	cfg     ComposeConfig
	state   atomic.Value // devops.ServiceState
}

// NewCompose creates the docker-mode service.
func NewCompose(pm *process.Manager, hc *health.Checker, sw *devlog.SectionWriter, cfg ComposeConfig) *Compose {
	if sw == nil {
		sw = devlog.NewSectionWriter(nil, false)
	}
	if hc == nil {
		hc = health.NewChecker()
	}
	s := &Compose{pm: pm, health: hc, section: sw, cfg: cfg}
	s.state.Store(devops.StateStopped)
	return s
}

func (s *Compose) Name() string { return "docker" }

func (s *Compose) State() devops.ServiceState {
	return s.state.Load().(devops.ServiceState)
}

func (s *Compose) Health(ctx context.Context) health.Result {
	if s.cfg.HealthURL == "" {
		return health.Result{Message: "no health endpoint"}
	}
	return s.health.Check(ctx, health.HTTP(s.cfg.HealthURL))
}

// Start brings the stack up and waits for the API to answer. A slow health
// check is reported but does not fail the start.
func (s *Compose) Start(ctx context.Context) error {
	s.state.Store(devops.StateStarting)
	if err := s.backend("start").Start(ctx); err != nil {
		s.state.Store(devops.StateFailed)
		return err
	}
	s.state.Store(devops.StateRunning)

	if s.cfg.HealthURL == "" || s.cfg.WaitHealthy <= 0 {
		return nil
	}
	s.section.Info("Waiting for %s ...", s.cfg.HealthURL)
	if err := s.health.WaitHealthy(ctx, health.HTTP(s.cfg.HealthURL), s.cfg.WaitHealthy); err != nil {
		s.section.Warn("Backend health check timed out: %v", err)
		return nil
	}
	s.section.Success("Backend healthy")
	s.state.Store(devops.StateHealthy)
	return nil
}

// Stop stops the stack.
func (s *Compose) Stop(ctx context.Context) error {
	s.state.Store(devops.StateStopping)
	if err := s.backend("stop").Start(ctx); err != nil {
		s.state.Store(devops.StateFailed)
		return err
	}
	s.state.Store(devops.StateStopped)
	return nil
}

func (s *Compose) backend(args ...string) *Backend {
	return NewBackend(s.pm, s.section, s.cfg.Backend, args...)
}
