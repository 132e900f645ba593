package devops

import (
	"context"
	"fmt"

	"aura/internal/devops/health"
)

// ServiceState tracks a delegated backend command from the launcher's side.
// A foreground run moves Starting, Running, then Exited or Failed; docker
// mode reaches Healthy once the API answers after compose start.
type ServiceState int

const (
	StateStopped ServiceState = iota
	StateStarting
	StateRunning
	StateHealthy
	StateStopping
	StateExited // foreground command returned 0
	StateFailed // non-zero exit, missing binary or stop failure
)

func (s ServiceState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateHealthy:
		return "healthy"
	case StateStopping:
		return "stopping"
	case StateExited:
		return "exited"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Service is one run_mode implementation: the run script, the compose stack
// or a bare backend command. Start blocks while a node/local backend runs in
// the foreground and returns its exit as an ExitError; Stop is what down calls.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	State() ServiceState
	Health(ctx context.Context) health.Result
}
