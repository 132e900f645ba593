package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"aura/internal/abilities"
	"aura/internal/config"
	"aura/internal/logging"
	"aura/internal/settings"
)

// prompter asks the user for configuration values.
type prompter interface {
	Select(label string, items []string, current string) (string, error)
	Input(label, current string, validate func(string) error) (string, error)
}

// newPrompter is replaced in tests.
var newPrompter = func(in io.Reader, out io.Writer) prompter {
	return &terminalPrompter{in: io.NopCloser(in), out: nopWriteCloser{out}}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type terminalPrompter struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (p *terminalPrompter) Select(label string, items []string, current string) (string, error) {
	cursor := 0
	for i, item := range items {
		if item == current {
			cursor = i
		}
	}
	sel := promptui.Select{
		Label:     label,
		Items:     items,
		CursorPos: cursor,
		Stdin:     p.in,
		Stdout:    p.out,
	}
	_, value, err := sel.Run()
	return value, err
}

func (p *terminalPrompter) Input(label, current string, validate func(string) error) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Default:  current,
		Validate: promptui.ValidateFunc(validate),
		Stdin:    p.in,
		Stdout:   p.out,
	}
	return prompt.Run()
}

func newConfigureCommand(a *app) *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Create config/aura.yaml from the example if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runConfigure(interactive)
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for run_mode, port and database_url")
	return cmd
}

func (a *app) runConfigure(interactive bool) error {
	sw := a.section()
	dir := a.loader.ConfigDir()
	res, err := config.Bootstrap(dir)
	if err != nil {
		return err
	}
	switch res.Status {
	case config.BootstrapCreated:
		sw.Success("Created %s. Edit it (run_mode, database_url, port, etc.).", res.Path)
	case config.BootstrapAlreadyExists:
		sw.Info("%s already exists.", res.Path)
	case config.BootstrapExampleMissing:
		sw.Error("Warning: %s not found.", res.Example)
	}

	if interactive {
		if err := a.promptSettings(res.Path); err != nil {
			return err
		}
	}

	a.loader.Invalidate()
	s, err := a.loader.Load()
	if err != nil {
		return err
	}

	overlay := abilities.ResolveOverlayPath(a.root, dir, s.AbilitiesFile)
	example := filepath.Join(dir, abilities.ExampleFileName)
	status, err := abilities.EnsureOverlay(overlay, example, logging.NewComponentLogger("abilities"))
	if err != nil {
		return err
	}
	sw.Info("Abilities overlay: %s", describeOverlay(overlay, status))
	return nil
}

func (a *app) promptSettings(path string) error {
	current, err := a.loader.Load()
	if err != nil {
		a.section().Warn("Current config is invalid, starting from defaults: %v", err)
		current = settings.Defaults()
	}

	p := newPrompter(a.stdin, a.stdout)
	modes := make([]string, 0, len(settings.RunModes))
	for _, m := range settings.RunModes {
		modes = append(modes, m.String())
	}

	mode, err := p.Select("run_mode", modes, current.RunMode.String())
	if err != nil {
		return fmt.Errorf("prompt run_mode: %w", err)
	}
	port, err := p.Input("port", strconv.Itoa(current.Port), validatePort)
	if err != nil {
		return fmt.Errorf("prompt port: %w", err)
	}
	dbURL, err := p.Input("database_url", current.DatabaseURL, validateNonEmpty)
	if err != nil {
		return fmt.Errorf("prompt database_url: %w", err)
	}

	if err := config.SaveValues(path, map[string]string{
		"run_mode":     mode,
		"port":         strings.TrimSpace(port),
		"database_url": strings.TrimSpace(dbURL),
	}); err != nil {
		return err
	}
	a.section().Success("Saved %s", path)
	return nil
}

func validatePort(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 || n > 65535 {
		return errors.New("port must be a number between 1 and 65535")
	}
	return nil
}

func validateNonEmpty(value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("value is required")
	}
	return nil
}
