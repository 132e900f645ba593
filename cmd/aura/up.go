package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"aura/internal/devops"
	"aura/internal/devops/services"
	errs "aura/internal/errors"
	"aura/internal/settings"
)

func newUpCommand(a *app, dev bool) *cobra.Command {
	use, short := "up", "One-click start (node/local: backend ./run script, docker: compose up)"
	if dev {
		use, short = "dev", "One-click dev (same as up with DEV=1 for node/local)"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runUp(cmd.Context(), use, dev)
		},
	}
}

func (a *app) runUp(ctx context.Context, name string, dev bool) error {
	l, err := a.prepare()
	if err != nil {
		return err
	}

	orch := devops.NewOrchestrator(a.section())
	orch.RegisterServices(a.modeService(l, dev))
	err = orch.Up(ctx)

	var exitErr *errs.ExitError
	if errors.As(err, &exitErr) {
		a.section().Error("Aura %s failed (exit code %d). See output above.", name, exitErr.Code)
		return &errs.ExitError{Code: exitErr.Code}
	}
	return err
}

func newDownCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "One-click stop (docker: compose stop, node/local: stop the backend process)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runDown(cmd.Context())
		},
	}
}

func (a *app) runDown(ctx context.Context) error {
	s, err := a.loader.Load()
	if err != nil {
		return err
	}
	if s.RunMode == settings.RunModeDocker {
		l, err := a.prepare()
		if err != nil {
			return err
		}
		orch := devops.NewOrchestrator(a.section())
		orch.RegisterServices(a.modeService(l, false))
		return orch.Down(ctx)
	}

	lc, err := a.launcherConfig()
	if err != nil {
		return err
	}
	svc := services.NewRunScript(a.processManager(lc), nil, a.section(), services.RunScriptConfig{
		Mode: s.RunMode.String(),
	})
	if err := svc.Stop(ctx); err != nil {
		a.section().Warn("%v", err)
	}
	return nil
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show run mode, tracked processes and backend health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runStatus(cmd.Context())
		},
	}
}

func (a *app) runStatus(ctx context.Context) error {
	s, err := a.loader.Load()
	if err != nil {
		return err
	}
	lc, err := a.launcherConfig()
	if err != nil {
		return err
	}
	sw := a.section()

	sw.Section("Aura")
	sw.Info("%-10s %s", "config", a.loader.Path())
	sw.Info("%-10s %s", "run_mode", s.RunMode)
	sw.Info("%-10s %s", "backend", lc.BackendRoot)

	sw.Section("Processes")
	pm := a.processManager(lc)
	for _, name := range []string{"run", "backend"} {
		if running, pid := pm.IsRunning(name); running {
			sw.Success("%-10s pid %d", name, pid)
		} else {
			sw.Info("%-10s not tracked", name)
		}
	}

	sw.Section("Health")
	l := &launch{settings: s, launcher: lc}
	orch := devops.NewOrchestrator(sw)
	orch.RegisterServices(a.modeService(l, false))
	for _, st := range orch.Status(ctx) {
		if st.Healthy {
			sw.Success("%-10s %s %s", st.Name, healthURL(s, lc), st.Message)
		} else {
			sw.Warn("%-10s %s %s", st.Name, healthURL(s, lc), st.Message)
		}
	}
	return nil
}
