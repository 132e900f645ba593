package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"aura/internal/abilities"
	"aura/internal/logging"
)

func newAbilitiesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "abilities",
		Short: "Inspect and maintain the abilities overlay (local_tools)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the merged tool list handed to the backend",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return a.runAbilitiesList()
			},
		},
		&cobra.Command{
			Use:   "ensure",
			Short: "Create or repair the abilities overlay",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return a.runAbilitiesEnsure()
			},
		},
		newAbilitiesWatchCommand(a),
	)
	return cmd
}

func (a *app) overlayPath() (string, error) {
	s, err := a.loader.Load()
	if err != nil {
		return "", err
	}
	return abilities.ResolveOverlayPath(a.root, a.loader.ConfigDir(), s.AbilitiesFile), nil
}

func (a *app) runAbilitiesList() error {
	s, err := a.loader.Load()
	if err != nil {
		return err
	}
	lc, err := a.launcherConfig()
	if err != nil {
		return err
	}
	rendered, err := a.generator(lc).Render(s, lc.BackendRoot)
	if err != nil {
		return err
	}
	overlay, err := abilities.LoadOverlay(rendered.AbilitiesPath)
	if err != nil {
		return err
	}
	fromOverlay := make(map[string]bool, len(overlay.Tools))
	for _, id := range abilities.IDs(overlay.Tools) {
		fromOverlay[id] = true
	}

	sw := a.section()
	sw.Section("Abilities")
	sw.Info("overlay %s", describeOverlay(rendered.AbilitiesPath, rendered.Overlay))
	sw.Info("base    %s", rendered.BaseSource)
	for _, tool := range rendered.Merged {
		source := "base"
		if fromOverlay[tool.ID] {
			source = "overlay"
		}
		sw.Plain("  %-20s %-28s %s", tool.ID, tool.DisplayName(), source)
	}
	return nil
}

func (a *app) runAbilitiesEnsure() error {
	path, err := a.overlayPath()
	if err != nil {
		return err
	}
	example := filepath.Join(a.loader.ConfigDir(), abilities.ExampleFileName)
	status, err := abilities.EnsureOverlay(path, example, logging.NewComponentLogger("abilities"))
	if err != nil {
		return err
	}
	a.section().Success("Abilities overlay: %s", describeOverlay(path, status))
	return nil
}

func newAbilitiesWatchCommand(a *app) *cobra.Command {
	var reload bool
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate the backend config whenever the overlay changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runAbilitiesWatch(cmd.Context(), reload, debounce)
		},
	}
	cmd.Flags().BoolVar(&reload, "reload", false, "run backend reload-config after each regeneration")
	cmd.Flags().DurationVar(&debounce, "debounce", 750*time.Millisecond, "quiet period before regenerating")
	return cmd
}

func (a *app) runAbilitiesWatch(ctx context.Context, reload bool, debounce time.Duration) error {
	if _, err := a.prepare(); err != nil {
		return err
	}
	path, err := a.overlayPath()
	if err != nil {
		return err
	}

	sw := a.section()
	regenerate := func(ctx context.Context) error {
		a.loader.Invalidate()
		if reload {
			if err := a.runBackend(ctx, []string{"reload-config"}); err != nil {
				sw.Warn("reload-config: %v", err)
				return err
			}
			sw.Success("Regenerated and reloaded")
			return nil
		}
		if _, err := a.prepare(); err != nil {
			sw.Warn("Regenerate: %v", err)
			return err
		}
		sw.Success("Regenerated backend config")
		return nil
	}

	w, err := abilities.NewWatcher(path, regenerate,
		abilities.WithWatchDebounce(debounce),
		abilities.WithWatchLogger(logging.NewComponentLogger("abilities")),
	)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	sw.Info("Watching %s (Ctrl-C to stop)", path)

	select {
	case <-ctx.Done():
	case <-w.Done():
	}
	w.Stop()
	return nil
}
