package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"aura/internal/diff"
	"aura/internal/generator"
)

func newGenerateCommand(a *app) *cobra.Command {
	var showDiff bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the backend app.yaml and models.yaml from aura.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runGenerate(showDiff)
		},
	}
	cmd.Flags().BoolVar(&showDiff, "diff", false, "print a unified diff against the previously generated files")
	return cmd
}

func (a *app) runGenerate(showDiff bool) error {
	s, err := a.loader.Load()
	if err != nil {
		return err
	}
	lc, err := a.launcherConfig()
	if err != nil {
		return err
	}
	gen := a.generator(lc)

	prevApp, prevTools, err := gen.Previous()
	if err != nil {
		return err
	}
	rendered, err := gen.Render(s, lc.BackendRoot)
	if err != nil {
		return err
	}
	res, err := gen.Write(rendered)
	if err != nil {
		return err
	}

	sw := a.section()
	sw.Success("Generated %s", res.AppConfigPath)
	sw.Success("Generated %s (from %s)", res.ToolsPath, rendered.BaseSource)
	sw.Info("Abilities overlay: %s", describeOverlay(res.AbilitiesPath, res.Overlay))
	sw.Info("Tools: %s", strings.Join(res.ToolIDs, ", "))

	if !showDiff {
		return nil
	}
	d := diff.NewGenerator(3, a.colorEnabled())
	changed := false
	for _, f := range []struct {
		name     string
		old, new []byte
	}{
		{generator.AppConfigFile, prevApp, rendered.AppConfig},
		{generator.ToolsFile, prevTools, rendered.Tools},
	} {
		r := d.Unified(f.name, string(f.old), string(f.new))
		if !r.Changed() {
			continue
		}
		changed = true
		fmt.Fprint(sw.Writer(), r.Text)
		sw.Info("%s: +%d -%d", f.name, r.Added, r.Deleted)
	}
	if !changed {
		sw.Info("No changes")
	}
	return nil
}
