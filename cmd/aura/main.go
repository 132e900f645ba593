package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	errs "aura/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, newApp(os.Stdin, os.Stdout, os.Stderr, os.Environ()), os.Args[1:])
	stop()
	os.Exit(code)
}

// run executes one CLI invocation and returns the process exit status.
func run(ctx context.Context, a *app, args []string) int {
	root := newRootCommand(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if !errs.Silent(err) {
		a.section().Error("%v", err)
	}
	return errs.ExitCode(err)
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "aura",
		Short: "Aura Swarm unified launcher",
		Long: `Aura Swarm unified launcher.

All settings live in config/aura.yaml (run_mode, host, port, database_url, ...).
The launcher generates the backend's app.yaml and models.yaml from it and
delegates to the backend CLI.`,
		Example: `  aura up                 One-click start (run_mode: node | local | docker)
  aura dev                One-click dev (node/local: DEV=1; docker: start)
  aura down               One-click stop
  aura serve --reload     Start the API server with auto-reload
  aura init-db            Create database extension and tables
  aura backend test --cov Run backend tests with coverage`,
		Version:       appVersion(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.String("config-dir", "", "directory holding aura.yaml (env AURA_CONFIG_DIR)")
	flags.String("log-level", "warn", "log level: debug, info, warn, error (env AURA_LOG_LEVEL)")
	_ = a.v.BindPFlag(keyConfigDir, flags.Lookup("config-dir"))
	_ = a.v.BindPFlag(keyLogLevel, flags.Lookup("log-level"))

	root.AddCommand(
		newUpCommand(a, false),
		newUpCommand(a, true),
		newDownCommand(a),
		newStatusCommand(a),
		newConfigureCommand(a),
		newGenerateCommand(a),
		newAbilitiesCommand(a),
		newDoctorCommand(a),
		newBackendCommand(a),
		newAssistantCommand(a),
	)
	for _, sc := range backendShortcuts {
		root.AddCommand(newShortcutCommand(a, sc))
	}
	return root
}
