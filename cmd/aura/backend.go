package main

import (
	"context"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"aura/internal/devops"
	"aura/internal/devops/process"
	"aura/internal/devops/services"
	errs "aura/internal/errors"
)

type shortcut struct {
	name  string
	short string
}

// backendShortcuts forward "aura <name> args..." to "agent-backend <name> args...".
var backendShortcuts = []shortcut{
	{"serve", "Start the API server (backend serve)"},
	{"init-db", "Create DB extension and tables"},
	{"test", "Run backend tests (pytest)"},
	{"reload-config", "POST /admin/reload (hot reload config)"},
	{"archive", "Run the archive task once"},
	{"health", "GET /health (readiness check)"},
	{"version", "Print backend version"},
	{"start", "Docker Compose up -d"},
	{"stop", "Docker Compose stop"},
	{"restart", "Docker Compose restart"},
	{"try-models", "Call configured chat models (test connectivity)"},
}

func newBackendCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:                "backend <command> [args...]",
		Short:              "Run agent-backend with the generated config (serve, init-db, test, ...)",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBackend(cmd.Context(), stripSeparators(args))
		},
	}
}

func newShortcutCommand(a *app, sc shortcut) *cobra.Command {
	return &cobra.Command{
		Use:                sc.name + " [args...]",
		Short:              sc.short,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBackend(cmd.Context(), append([]string{sc.name}, stripSeparators(args)...))
		},
	}
}

func (a *app) runBackend(ctx context.Context, args []string) error {
	l, err := a.prepare()
	if err != nil {
		return err
	}
	b := services.NewBackend(a.processManager(l.launcher), a.section(), a.backendConfig(l.launcher, l.env))
	code, err := b.Run(ctx, args)
	if err != nil {
		return err
	}
	if code != 0 {
		return &errs.ExitError{Code: code}
	}
	return nil
}

const assistantHint = "Install Claude Code: npm install -g @anthropic-ai/claude-code"

var lookPath = exec.LookPath

func newAssistantCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:                "claude [args...]",
		Short:              "Run the Claude Code CLI with the Anthropic settings from aura.yaml",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAssistant(cmd.Context(), stripSeparators(args))
		},
	}
}

func (a *app) runAssistant(ctx context.Context, args []string) error {
	s, err := a.loader.Load()
	if err != nil {
		return err
	}
	lc, err := a.launcherConfig()
	if err != nil {
		return err
	}

	bin, err := lookPath(lc.AssistantBin)
	if err != nil {
		return &errs.MissingBinaryError{Binary: lc.AssistantBin, Hint: assistantHint}
	}

	var anthropic []string
	for key, value := range map[string]string{
		"ANTHROPIC_API_KEY":  strings.TrimSpace(s.AnthropicAPIKey),
		"ANTHROPIC_BASE_URL": strings.TrimSpace(s.AnthropicBaseURL),
	} {
		if _, ok := a.lookup(key); !ok && value != "" {
			anthropic = append(anthropic, key+"="+value)
		}
	}

	cmd := exec.Command(bin, args...)
	cmd.Env = devops.MergeEnv(a.env, anthropic)
	cmd.Stdin = a.stdin
	cmd.Stdout = a.stdout
	cmd.Stderr = a.stderr

	code, err := a.processManager(lc).Run(ctx, "assistant", cmd, process.RunOptions{})
	if err != nil {
		return err
	}
	if code != 0 {
		return &errs.ExitError{Code: code}
	}
	return nil
}
