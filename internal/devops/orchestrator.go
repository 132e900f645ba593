package devops

import (
	"context"
	"fmt"

	devlog "aura/internal/devops/log"
)

// ServiceStatus holds the status of a single service.
type ServiceStatus struct {
	Name    string
	State   ServiceState
	Healthy bool
	Message string
}

// Orchestrator starts the services selected for a run mode in order and
// stops them in reverse.
type Orchestrator struct {
	services []Service
	section  *devlog.SectionWriter
}

// NewOrchestrator creates an orchestrator reporting through section.
func NewOrchestrator(section *devlog.SectionWriter) *Orchestrator {
	if section == nil {
		section = devlog.NewSectionWriter(nil, false)
	}
	return &Orchestrator{section: section}
}

// Section returns the section writer.
func (o *Orchestrator) Section() *devlog.SectionWriter { return o.section }

// RegisterServices sets the ordered list of services to manage.
func (o *Orchestrator) RegisterServices(services ...Service) {
	o.services = services
}

// Services returns the registered services in start order.
func (o *Orchestrator) Services() []Service {
	return o.services
}

// Up starts all registered services in order and stops at the first failure.
func (o *Orchestrator) Up(ctx context.Context) error {
	for _, svc := range o.services {
		o.section.Section(svc.Name())
		if err := svc.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", svc.Name(), err)
		}
	}
	return nil
}

// Down stops registered services in reverse order. Every service is asked to
// stop; the last error is returned.
func (o *Orchestrator) Down(ctx context.Context) error {
	var lastErr error
	for i := len(o.services) - 1; i >= 0; i-- {
		svc := o.services[i]
		if err := svc.Stop(ctx); err != nil {
			o.section.Error("Failed to stop %s: %v", svc.Name(), err)
			lastErr = err
		}
	}
	return lastErr
}

// Status returns the status of all services.
func (o *Orchestrator) Status(ctx context.Context) []ServiceStatus {
	statuses := make([]ServiceStatus, 0, len(o.services))
	for _, svc := range o.services {
		hr := svc.Health(ctx)
		statuses = append(statuses, ServiceStatus{
			Name:    svc.Name(),
			State:   svc.State(),
			Healthy: hr.Healthy,
			Message: hr.Message,
		})
	}
	return statuses
}
